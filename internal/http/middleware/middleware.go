// middleware — сквозные обработчики BFF: паники, request id, логи, метрики,
// Route Guard, лимиты и дедлайны. Порядок сборки задаёт internal/http.
package middleware

import (
	"net/http"
)

// Middleware — стандартный net/http мидлвар (совместим с chi.Use/chi.Chain).
type Middleware func(http.Handler) http.Handler

// trackingWriter запоминает первый отправленный статус и число байт тела.
// Flush и Unwrap пробрасываются: прокси стримит тело апстрима.
type trackingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func track(w http.ResponseWriter) *trackingWriter {
	return &trackingWriter{ResponseWriter: w}
}

func (w *trackingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if w.status == 0 {
			w.status = http.StatusOK
		}
		f.Flush()
	}
}

func (w *trackingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// code — итоговый статус ответа; хендлер, не писавший ничего, отдал 200.
func (w *trackingWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
