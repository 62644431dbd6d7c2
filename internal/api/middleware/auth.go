package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-RoomBookingService/internal/api/handlers"
)

type ctxKey string

const userIDKey ctxKey = "userID"

const headerUserID = "X-User-ID"

const msgMissingUserHeader = "отсутствует заголовок X-User-ID"

// Auth извлекает ID пользователя из заголовка X-User-ID и кладёт его
// в контекст запроса. Запросы без валидного заголовка отклоняются.
// Аутентификацию как таковую выполняет API gateway выше по цепочке.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(headerUserID)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			handlers.RespondUnauthorized(w, msgMissingUserHeader)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID возвращает ID пользователя из контекста запроса
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
