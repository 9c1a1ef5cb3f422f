// Package config loads named game presets from a directory.
//
// A preset is an engine.Options document stored as <name>.json or
// <name>.yaml (or .yml). Names are looked up without the extension, JSON
// first. Loaded presets are validated with engine.ValidateOptions and
// cached until RefreshCache.
//
// Shipped presets:
//   - classic: 15x10 warehouse, three to eight crates in four colours
//   - easy: small room with few, well spaced crates
//   - dense: YAML preset with tight spacing and many crates
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	opts, err := manager.LoadConfig("easy")
//	defaults := manager.GetDefault()
//	infos, err := manager.ListConfigs()
//
// The default preset is classic when present, otherwise the first loadable
// file, otherwise engine.DefaultOptions. SaveConfig always writes JSON.
package config
