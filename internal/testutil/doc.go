// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing model responses and function calls. They are
// not intended for production usage.
package testutil
