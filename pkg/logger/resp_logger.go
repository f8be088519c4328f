// Package logger captures what a handler wrote so it can be logged after the
// response is sent.
package logger

import "net/http"

type ResponseLogger struct {
	w           http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func New(w http.ResponseWriter) *ResponseLogger {
	return &ResponseLogger{w: w, status: http.StatusOK}
}

// WriteHeader records only the first status; net/http ignores later calls.
func (l *ResponseLogger) WriteHeader(code int) {
	if l.wroteHeader {
		return
	}
	l.wroteHeader = true
	l.status = code
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	l.wroteHeader = true
	n, err := l.w.Write(b)
	l.bytes += n
	return n, err
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *ResponseLogger) Status() int {
	return l.status
}

// Bytes returns the number of body bytes written.
func (l *ResponseLogger) Bytes() int {
	return l.bytes
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (l *ResponseLogger) Unwrap() http.ResponseWriter {
	return l.w
}
