package service

import (
	"context"
	"testing"
	"time"

	"github.com/bigkaa/gosonglet/internal/tokenstore"
)

func TestVerifyService_Issue(t *testing.T) {
	tokens := tokenstore.New(16, time.Minute)
	svc := NewVerifyService(captchaServer(t, true), tokens, testLogger())

	encoded, err := svc.Issue(context.Background(), "captcha-ok", "127.0.0.1")
	if err != nil {
		t.Fatalf("ошибка выдачи токена: %v", err)
	}
	if len(encoded) != 22 {
		t.Errorf("длина токена = %d, ожидается 22", len(encoded))
	}

	// Выданный токен зарегистрирован в реестре
	id, err := DecodeToken(encoded)
	if err != nil {
		t.Fatalf("ошибка декодирования выданного токена: %v", err)
	}
	if _, ok := tokens.Lookup(id); !ok {
		t.Error("токен должен быть зарегистрирован в реестре")
	}
}

func TestVerifyService_CaptchaRejected(t *testing.T) {
	tokens := tokenstore.New(16, time.Minute)
	svc := NewVerifyService(captchaServer(t, false), tokens, testLogger())

	if _, err := svc.Issue(context.Background(), "captcha-bad", "127.0.0.1"); err != nil {
		if tokens.Len() != 0 {
			t.Error("при отказе капчи токен не выдаётся")
		}
		return
	}
	t.Fatal("выдача с плохой капчей должна быть отклонена")
}
