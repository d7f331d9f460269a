// Package webtest provides the testing tools for generated web applications:
// a Python syntax checker and a functional API test harness.
//
// The functional harness owns one uvicorn subprocess per invocation. The
// server is started with buffered output, probed until it accepts TCP
// connections, exercised case by case over HTTP, and killed and waited on
// along every exit path. The fixed host/port pair is guarded by a
// process-wide gate so concurrent invocations serialize instead of
// colliding.
//
// Tools:
//   - check_syntax: syntax-only compile of one Python file
//   - api_test: declarative HTTP request/response assertions against a
//     running server instance
package webtest
