// middleware — net/http мидлвары REST-сервера.
package middleware

import (
	"net/http"
)

// Middleware — стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain оборачивает h так, что первый мидлвар списка выполняется первым.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxIdentity
)

// responseMeter запоминает первый записанный статус и число байт тела.
type responseMeter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.code == 0 {
		m.code = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(p []byte) (int, error) {
	if m.code == 0 {
		m.code = http.StatusOK
	}

	n, err := m.ResponseWriter.Write(p)
	m.bytes += n
	return n, err
}

// Unwrap нужен http.ResponseController.
func (m *responseMeter) Unwrap() http.ResponseWriter { return m.ResponseWriter }

// Status — записанный статус; 200, если обработчик ничего не записал.
func (m *responseMeter) Status() int {
	if m.code == 0 {
		return http.StatusOK
	}
	return m.code
}

// meter переиспользует уже установленный responseMeter, чтобы логирование
// и метрики видели один и тот же статус.
func meter(w http.ResponseWriter) *responseMeter {
	if m, ok := w.(*responseMeter); ok {
		return m
	}
	return &responseMeter{ResponseWriter: w}
}
