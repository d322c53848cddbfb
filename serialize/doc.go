// Package serialize implements the JSON-like text encoding used to
// move composite heap values in and out of the sandbox as plain
// strings (spec §4.7 "Serialization"). The wire format is a subset of
// JSON: objects, arrays, quoted strings with standard escapes,
// numbers, true/false/null, plus the two reserved object keys
// "$tuple" and "$names" used to distinguish a named tuple from a
// struct instance.
package serialize
