// Package mcp implements a Model Context Protocol (MCP) server over the
// curation store.
//
// The server exposes retrieval and curation operations as MCP tools so that
// agent frameworks and editors speaking the protocol can search collections,
// resolve identifiers, ground free text against an ontology, and draft
// completed objects without shelling out to the CLI.
//
// # Tools
//
//   - search_collection: semantic search over one collection, returning
//     scored objects.
//   - lookup_object: fetch a single object by identifier.
//   - ground_concept: propose candidate concept identifiers for a text span
//     by vector search over an ontology collection.
//   - complete_object: draft the missing fields of a partial object from
//     retrieved examples. Registered only when a completion backend is
//     configured; the retrieval tools work without one.
//
// # Handler pattern
//
// Each tool follows the same shape: an input struct whose schema is inferred
// with jsonschema-go, a handler method on Server registered through
// mcp.AddTool, and a JSON text payload built inline. Invalid input and
// missing objects come back as IsError results the client can show the
// model; store or backend failures propagate as protocol errors.
//
// # Transport
//
// Run blocks on the supplied transport. The CLI uses stdio, tests use the
// SDK's in-memory transport pair.
package mcp
