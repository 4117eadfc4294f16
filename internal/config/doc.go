// Package config provides configuration parsing for the propagate server.
//
// The configuration is stored in propagate.json. This package handles
// loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "demo",
//	  "server": {
//	    "port": 8080,
//	    "host": "localhost",
//	    "shutdownTimeout": "5s"
//	  },
//	  "stream": {
//	    "bufferSize": 64,
//	    "writeTimeout": "10s",
//	    "allowedOrigins": ["https://example.com"]
//	  },
//	  "engine": {
//	    "debug": false,
//	    "faultPolicy": "log",
//	    "contention": "block"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "propagate",
//	    "path": "/metrics"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "demo": {
//	    "tickInterval": "1s"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
