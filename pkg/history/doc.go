// Package history records how often each plugin has run and how the last run
// ended.
//
// The store is a JSON object keyed by plugin name:
//
//	{
//	  "hello": {
//	    "successes": 3,
//	    "failures": 1,
//	    "last_run": "2026-01-02T15:04:05Z",
//	    "last_status": "exit status 2"
//	  }
//	}
//
// History is advisory. A missing or corrupt file starts an empty history, and
// callers usually log write errors rather than fail the run.
package history
