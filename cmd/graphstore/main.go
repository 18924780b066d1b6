// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command graphstore serves and queries an in-memory property graph.
//
// Usage:
//
//	graphstore config init
//	graphstore serve --fixture graph.yaml --watch
//	graphstore query --fixture graph.yaml value,name,Josh relations_from
//	graphstore methods
//	graphstore dump --fixture graph.yaml
//
// Example requests against a running server:
//
//	# Health check
//	curl http://localhost:8080/v1/graph/health
//
//	# Who does Josh point at?
//	curl 'http://localhost:8080/v1/graph/search/value,name,Josh/relations_from?data=true' | jq
//
//	# Build a search across requests
//	curl -X POST http://localhost:8080/v1/graph/sessions
//	curl -X POST http://localhost:8080/v1/graph/sessions/$ID/steps \
//	  -H "Content-Type: application/json" \
//	  -d '{"method": "property", "args": ["job"]}'
//	curl -X POST http://localhost:8080/v1/graph/sessions/$ID/execute
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
