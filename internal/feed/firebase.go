// firebase.go — REST-клиент ленты поверх Firebase Realtime Database.
//
// Записи живут под узлом /songs: ключ — push-ключ, значение —
// {title, artist, timestamp}. Диапазонные запросы используют REST-параметры
// orderBy/endAt/limitToLast, live-события — streaming REST (SSE,
// Accept: text/event-stream) с переподключением.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/gosonglet/internal/domain/fault"
	"github.com/bigkaa/gosonglet/internal/domain/model"
)

// songValue — значение записи в RTDB (без ключа).
type songValue struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Timestamp int64  `json:"timestamp"`
}

// Firebase — клиент ленты поверх Firebase RTDB REST API.
type Firebase struct {
	baseURL    string // URL базы без trailing slash, например https://proj.firebaseio.com
	authToken  string // опциональный auth-токен (query-параметр auth)
	watchLimit int    // limitToLast для live-подписки
	httpClient *http.Client
	logger     *slog.Logger
	gen        *keyGenerator
	events     chan Event
}

// NewFirebase создаёт клиент ленты.
// baseURL — корень базы; authToken может быть пустым (открытые правила/эмулятор).
// watchLimit — ширина окна live-подписки (обычно размер кэша).
func NewFirebase(baseURL, authToken string, watchLimit int, httpClient *http.Client, logger *slog.Logger) *Firebase {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Firebase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		watchLimit: watchLimit,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "firebase_feed")),
		gen:        newKeyGenerator(),
		events:     make(chan Event, 256),
	}
}

// NewKey выделяет новый push-ключ.
// Ключ генерируется на стороне клиента, как в Firebase SDK.
func (f *Firebase) NewKey() string {
	return f.gen.Next()
}

// songURL строит URL узла /songs/{key}.json с параметрами query.
func (f *Firebase) songURL(key string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if f.authToken != "" {
		query.Set("auth", f.authToken)
	}
	path := f.baseURL + "/songs.json"
	if key != "" {
		path = f.baseURL + "/songs/" + url.PathEscape(key) + ".json"
	}
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// Push записывает rec под rec.Key.
func (f *Firebase) Push(ctx context.Context, rec model.SongRecord) error {
	body, err := json.Marshal(songValue{Title: rec.Title, Artist: rec.Artist, Timestamp: rec.Timestamp})
	if err != nil {
		return &fault.FeedError{Op: "push", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, f.songURL(rec.Key, nil), bytes.NewReader(body))
	if err != nil {
		return &fault.FeedError{Op: "push", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if err := f.do(req, nil); err != nil {
		return &fault.FeedError{Op: "push", Err: err}
	}
	return nil
}

// Get возвращает запись по ключу. RTDB отвечает null для отсутствующего узла.
func (f *Firebase) Get(ctx context.Context, key string) (model.SongRecord, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.songURL(key, nil), nil)
	if err != nil {
		return model.SongRecord{}, false, &fault.FeedError{Op: "get", Err: err}
	}

	var val *songValue
	if err := f.do(req, &val); err != nil {
		return model.SongRecord{}, false, &fault.FeedError{Op: "get", Err: err}
	}
	if val == nil {
		return model.SongRecord{}, false, nil
	}
	return model.SongRecord{Key: key, Title: val.Title, Artist: val.Artist, Timestamp: val.Timestamp}, true, nil
}

// Remove удаляет запись по ключу.
func (f *Firebase) Remove(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, f.songURL(key, nil), nil)
	if err != nil {
		return &fault.FeedError{Op: "remove", Err: err}
	}
	if err := f.do(req, nil); err != nil {
		return &fault.FeedError{Op: "remove", Err: err}
	}
	return nil
}

// EndingAt возвращает до limit записей с ключом <= key по убыванию ключа.
func (f *Firebase) EndingAt(ctx context.Context, key string, limit int) ([]model.SongRecord, error) {
	query := url.Values{}
	query.Set("orderBy", `"$key"`)
	query.Set("endAt", fmt.Sprintf("%q", key))
	query.Set("limitToLast", fmt.Sprintf("%d", limit))

	recs, err := f.query(ctx, query)
	if err != nil {
		return nil, &fault.FeedError{Op: "ending_at", Err: err}
	}
	return recs, nil
}

// OlderThan возвращает записи с timestamp <= cutoff.
func (f *Firebase) OlderThan(ctx context.Context, cutoff int64) ([]model.SongRecord, error) {
	query := url.Values{}
	query.Set("orderBy", `"timestamp"`)
	query.Set("endAt", fmt.Sprintf("%d", cutoff))

	recs, err := f.query(ctx, query)
	if err != nil {
		return nil, &fault.FeedError{Op: "older_than", Err: err}
	}
	return recs, nil
}

// query выполняет диапазонный запрос и возвращает записи по убыванию ключа.
func (f *Firebase) query(ctx context.Context, qv url.Values) ([]model.SongRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.songURL("", qv), nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]songValue
	if err := f.do(req, &raw); err != nil {
		return nil, err
	}

	recs := make([]model.SongRecord, 0, len(raw))
	for k, v := range raw {
		recs = append(recs, model.SongRecord{Key: k, Title: v.Title, Artist: v.Artist, Timestamp: v.Timestamp})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key > recs[j].Key })
	return recs, nil
}

// do выполняет запрос, проверяет статус и декодирует JSON-ответ в out (если не nil).
func (f *Firebase) do(req *http.Request, out any) error {
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("RTDB вернул статус %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Events возвращает канал live-событий.
func (f *Firebase) Events() <-chan Event {
	return f.events
}

// Start запускает горутину live-подписки на окно последних watchLimit записей.
// При обрыве поток переподключается с паузой.
func (f *Firebase) Start(ctx context.Context) {
	go func() {
		for {
			if err := f.stream(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error("Поток событий ленты оборвался, переподключение",
					slog.String("error", err.Error()),
				)
				f.emit(Event{Type: EventError, Err: err})
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()
}

// stream держит одно SSE-соединение и транслирует put-события в Events.
func (f *Firebase) stream(ctx context.Context) error {
	query := url.Values{}
	query.Set("orderBy", `"$key"`)
	query.Set("limitToLast", fmt.Sprintf("%d", f.watchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.songURL("", query), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streaming-запрос без общего таймаута клиента
	client := &http.Client{Transport: f.httpClient.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("RTDB stream вернул статус %d", resp.StatusCode)
	}

	f.logger.Info("Live-подписка на ленту установлена")

	var eventName string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			f.handleStreamEvent(eventName, data)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("поток событий завершился")
}

// streamPayload — тело put/patch события streaming REST API.
type streamPayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// handleStreamEvent разбирает одно SSE-событие.
//
// put с path="/" — полный снимок окна: транслируется в серию add по
// возрастанию ключа (порядок прихода = порядок ленты). put с path="/{key}" —
// добавление (объект) либо удаление (null) одной записи.
func (f *Firebase) handleStreamEvent(name, data string) {
	switch name {
	case "put", "patch":
	case "keep-alive", "":
		return
	default:
		// auth_revoked, cancel
		f.emit(Event{Type: EventError, Err: fmt.Errorf("событие потока %s", name)})
		return
	}

	var payload streamPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		f.emit(Event{Type: EventError, Err: err})
		return
	}

	if payload.Path == "/" || payload.Path == "" {
		var snapshot map[string]songValue
		if err := json.Unmarshal(payload.Data, &snapshot); err != nil {
			f.emit(Event{Type: EventError, Err: err})
			return
		}
		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := snapshot[k]
			f.emit(Event{Type: EventAdd, Record: model.SongRecord{Key: k, Title: v.Title, Artist: v.Artist, Timestamp: v.Timestamp}})
		}
		return
	}

	key := strings.TrimPrefix(payload.Path, "/")
	if string(payload.Data) == "null" {
		f.emit(Event{Type: EventRemove, Record: model.SongRecord{Key: key}})
		return
	}

	var val songValue
	if err := json.Unmarshal(payload.Data, &val); err != nil {
		f.emit(Event{Type: EventError, Err: err})
		return
	}
	f.emit(Event{Type: EventAdd, Record: model.SongRecord{Key: key, Title: val.Title, Artist: val.Artist, Timestamp: val.Timestamp}})
}

// emit публикует событие без блокировки: подписчик best-effort.
func (f *Firebase) emit(ev Event) {
	select {
	case f.events <- ev:
	default:
	}
}

var _ Feed = (*Firebase)(nil)
