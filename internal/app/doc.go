// Package app composes the backend into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and health
//	├── domain/             # Domain models (pure data structures)
//	│   ├── admin/          # Platform administrators
//	│   ├── node/           # Node operators
//	│   ├── user/           # Tokenization users
//	│   └── position/       # Tokenized positions and ledger entries
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # AdminStore, NodeStore, UserStore, ...
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── supabase/       # PostgREST implementation for production
//	├── services/           # Business logic (auth, users, positions, ...)
//	├── httpapi/            # HTTP handlers, routing, response envelope
//	└── metrics/            # Prometheus instrumentation
//
// The app package wires services to stores and exposes them through
// httpapi. Business rules live in services/; handlers only decode
// requests, call a service, and encode the envelope.
//
// When adding a new domain:
//
//  1. Create domain models in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory/ and storage/supabase/
//  4. Create the service in internal/app/services/<name>/
//  5. Wire it in application.go and route it in httpapi/handler.go
package app
