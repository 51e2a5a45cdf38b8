// Package config provides the configuration system for mapforge.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Arguments  │  ← Highest priority (applied by cmd)
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← MAPFORGE_HISTORY_MAX_ITEMS, ...
//	├─────────────────────────────┤
//	│  2. Config File             │  ← mapforge.toml or mapforge.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: Configuration file loading (TOML, YAML, environment variables)
//   - watcher: File watching for live reload
//
// # Basic Usage
//
//	cfg, err := config.Load(config.Options{Path: "mapforge.toml"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.History.MaxItems)
//
// # Configuration Files
//
//	# mapforge.toml
//	[history]
//	max_items = 50
//
//	[logging]
//	level = "debug"
//	format = "json"
//
//	[script]
//	timeout = "5s"
//	call_limit = 1000000
//
// # Live Reload
//
// A Reloader watches the config file and publishes each successfully
// loaded Config to its subscribers. Invalid files are reported and the
// previous configuration stays in effect.
package config
