// verify.go — выдача токенов загрузки после проверки captcha.
//
// Клиент проходит проверку капчи и получает токен: UUID v4, закодированный
// base64url без выравнивания (22 символа). Токен кладётся в реестр ожидающих
// загрузок и предъявляется в теге COMMENT трейлера ID3v1.
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gosonglet/internal/captcha"
	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

// VerifyService выдаёт токены загрузки после проверки капчи.
type VerifyService struct {
	oracle *captcha.Verifier
	tokens *tokenstore.Store
	logger *slog.Logger

	now func() time.Time
}

// NewVerifyService создаёт сервис выдачи токенов.
func NewVerifyService(oracle *captcha.Verifier, tokens *tokenstore.Store, logger *slog.Logger) *VerifyService {
	return &VerifyService{
		oracle: oracle,
		tokens: tokens,
		logger: logger.With(slog.String("component", "verify")),
		now:    time.Now,
	}
}

// Issue проверяет ответ капчи и выдаёт закодированный токен загрузки.
func (s *VerifyService) Issue(ctx context.Context, captchaResponse, remoteAddr string) (string, error) {
	if err := s.oracle.Check(ctx, captchaResponse, remoteAddr); err != nil {
		return "", err
	}

	token := uuid.New()
	s.tokens.Put(token.String(), s.now())

	s.logger.Info("Выдан токен загрузки", slog.String("token", token.String()))
	return EncodeToken(token), nil
}

// EncodeToken кодирует UUID токена в компактную строковую форму:
// base64url без выравнивания, 22 символа.
func EncodeToken(token uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(token[:])
}

// DecodeToken разбирает компактную форму токена и возвращает канонический
// текстовый UUID — ключ в реестре ожидающих загрузок.
func DecodeToken(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("некорректная кодировка токена: %w", err)
	}
	token, err := uuid.FromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("некорректная длина токена: %w", err)
	}
	return token.String(), nil
}
