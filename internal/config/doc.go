// Package config loads the braid.json project configuration.
//
// A project is any directory holding a braid.json file. Loading is strict:
// unknown fields are rejected, defaults fill in everything omitted, and the
// BRAID_PORT environment variable overrides the configured port.
//
//	{
//	  "name": "shop",
//	  "routes": "app/routes",
//	  "server": {"host": "localhost", "port": 3000, "metrics": true},
//	  "static": {"dir": "public", "prefix": "/"},
//	  "dev": {"watch": ["app", "public"], "debounceMs": 100},
//	  "upload": {"dir": ".braid/uploads", "maxFileSize": 10485760}
//	}
package config
