// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing events, sessions and scripted engines. They
// are not intended for production usage.
package testutil
