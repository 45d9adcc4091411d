// Пакет captcha — клиент оракула human-верификации (reCAPTCHA siteverify).
//
// Оракулу передаются токен ответа пользователя и адрес вызывающего;
// результат — успех либо отказ. Любая недоступность оракула или success=false
// превращается в fault.OracleError вызывающей операции.
package captcha

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encoding/json"

	"github.com/bigkaa/gosonglet/internal/domain/fault"
)

// Verifier — клиент endpoint'а верификации.
type Verifier struct {
	verifyURL  string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент оракула.
// verifyURL — endpoint siteverify, secretKey — серверный секрет captcha.
func New(verifyURL, secretKey string, httpClient *http.Client, logger *slog.Logger) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		verifyURL:  verifyURL,
		secretKey:  secretKey,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "captcha")),
	}
}

// verifyResponse — тело ответа siteverify.
type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Check проверяет ответ captcha для указанного адреса вызывающего.
// nil — верификация пройдена; иначе *fault.OracleError.
func (v *Verifier) Check(ctx context.Context, captchaResponse, remoteAddr string) error {
	if captchaResponse == "" {
		return &fault.OracleError{Reason: "отсутствует ответ captcha"}
	}

	form := url.Values{
		"secret":   {v.secretKey},
		"response": {captchaResponse},
		"remoteip": {remoteAddr},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &fault.OracleError{Reason: "создание запроса верификации", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return &fault.OracleError{Reason: "оракул недоступен", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &fault.OracleError{Reason: fmt.Sprintf("оракул вернул статус %d", resp.StatusCode)}
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &fault.OracleError{Reason: "некорректный ответ оракула", Err: err}
	}

	if !body.Success {
		v.logger.Debug("Верификация captcha отклонена",
			slog.Any("error_codes", body.ErrorCodes),
		)
		return &fault.OracleError{Reason: "верификация вернула success=false"}
	}
	return nil
}
