package history

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStackPushPop(t *testing.T) {
	var s Stack[string]

	s.Push("a")
	s.Push("b")
	s.Push("c")

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if top, ok := s.Peek(); !ok || top != "c" {
		t.Errorf("Peek() = %q, %v", top, ok)
	}

	for _, want := range []string{"c", "b", "a"} {
		got, err := s.Pop()
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if got != want {
			t.Errorf("Pop() = %q, want %q", got, want)
		}
	}

	if _, err := s.Pop(); !errors.Is(err, ErrStackEmpty) {
		t.Errorf("Pop() on empty error = %v, want ErrStackEmpty", err)
	}
	if _, ok := s.Peek(); ok {
		t.Error("Peek() on empty = true")
	}
}

func TestStackItemsTopFirst(t *testing.T) {
	var s Stack[int]
	for i := 1; i <= 4; i++ {
		s.Push(i)
	}

	if diff := cmp.Diff([]int{4, 3, 2, 1}, s.Items()); diff != "" {
		t.Errorf("Items() mismatch (-want +got):\n%s", diff)
	}
	if v, ok := s.At(0); !ok || v != 4 {
		t.Errorf("At(0) = %d, %v", v, ok)
	}
	if v, ok := s.At(3); !ok || v != 1 {
		t.Errorf("At(3) = %d, %v", v, ok)
	}
	if _, ok := s.At(4); ok {
		t.Error("At(4) out of range = true")
	}
	if _, ok := s.At(-1); ok {
		t.Error("At(-1) = true")
	}
}

func TestStackTrim(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		evicted int
		want    []int
	}{
		{"under capacity", 10, 0, []int{5, 4, 3, 2, 1}},
		{"at capacity", 5, 0, []int{5, 4, 3, 2, 1}},
		{"over capacity", 2, 3, []int{5, 4}},
		{"zero", 0, 5, []int{}},
		{"negative", -1, 5, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stack[int]
			for i := 1; i <= 5; i++ {
				s.Push(i)
			}
			if got := s.Trim(tt.max); got != tt.evicted {
				t.Errorf("Trim(%d) = %d, want %d", tt.max, got, tt.evicted)
			}
			if diff := cmp.Diff(tt.want, s.Items()); diff != "" {
				t.Errorf("Items() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStackClear(t *testing.T) {
	var s Stack[int]
	s.Push(1)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d", s.Len())
	}
}

// Record tests

func TestOperationRecordExecute(t *testing.T) {
	var got []int
	rec := NewOperationRecord(func(v int) error {
		got = append(got, v)
		return nil
	}, 42, "store")

	if err := rec.Execute(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{42}, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if rec.Name() != "store" || rec.Data() != 42 {
		t.Errorf("Name()/Data() = %q/%d", rec.Name(), rec.Data())
	}
	info := rec.Info()
	if info.Transaction || info.Children != 0 || info.Description != "store" {
		t.Errorf("Info() = %+v", info)
	}
}

func TestOperationRecordNilOp(t *testing.T) {
	rec := NewOperationRecord[int](nil, 1, "")
	if err := rec.Execute(); err != nil {
		t.Errorf("Execute() with nil op error = %v", err)
	}
}

func TestTransactionRecordOrder(t *testing.T) {
	var order []string
	tr := NewTransactionRecord("batch")
	for _, name := range []string{"one", "two", "three"} {
		tr.Add(NewOperationRecord(func(s string) error {
			order = append(order, s)
			return nil
		}, name, name))
	}

	if tr.Len() != 3 || tr.IsEmpty() {
		t.Fatalf("Len() = %d", tr.Len())
	}
	if err := tr.Execute(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"three", "two", "one"}, order); diff != "" {
		t.Errorf("execute order (-want +got):\n%s", diff)
	}
	if got := tr.Children()[0].Name(); got != "three" {
		t.Errorf("first child = %q, want three", got)
	}
}

func TestTransactionRecordError(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTransactionRecord("batch")
	tr.Add(NewOperationRecord(func(int) error { return boom }, 0, "bad"))

	err := tr.Execute()
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "batch") {
		t.Errorf("error %q does not name the transaction", err)
	}
}

func TestReplayErrorUnwrap(t *testing.T) {
	boom := errors.New("boom")
	err := error(&ReplayError{Direction: "undo", Record: "move", Err: boom})
	if !errors.Is(err, boom) {
		t.Error("ReplayError does not unwrap")
	}
	var re *ReplayError
	if !errors.As(err, &re) || re.Direction != "undo" {
		t.Errorf("errors.As failed: %v", err)
	}
}
