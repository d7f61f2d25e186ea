// Package app starts an application on an ephemeral local port for the
// duration of a request and binds a runner to it.
//
// Anything that can start listening qualifies as a Runnable. FromHandler and
// FromGin adapt plain handlers and gin engines; RunnableFunc adapts a
// function. WithApp starts the application once, discovers its port and
// returns an App whose runner closes the server after each request's response
// has arrived.
package app
