package id3

import (
	"bytes"
	"testing"
)

// makeTrailer собирает трейлер ID3v1.1 (128 байт).
func makeTrailer(title, artist, album, year, comment string, track, genre byte) []byte {
	t := make([]byte, 128)
	copy(t, "TAG")
	copy(t[3:33], title)
	copy(t[33:63], artist)
	copy(t[63:93], album)
	copy(t[93:97], year)
	copy(t[97:125], comment)
	if track != 0 {
		t[125] = 0
		t[126] = track
	}
	t[127] = genre
	return t
}

func TestTrailerScanner_SingleChunk(t *testing.T) {
	s := NewTrailerScanner()
	data := append(bytes.Repeat([]byte{0xAA}, 500),
		makeTrailer("My Song", "The Artist", "", "", "", 0, 0)...)
	s.Feed(data)

	if s.Total() != int64(len(data)) {
		t.Errorf("Total = %d, ожидалось %d", s.Total(), len(data))
	}

	f, ok := s.Frame()
	if !ok {
		t.Fatal("Трейлер не обнаружен")
	}
	if f.Title != "My Song" {
		t.Errorf("Title = %q, ожидалось %q", f.Title, "My Song")
	}
	if f.Artist != "The Artist" {
		t.Errorf("Artist = %q, ожидалось %q", f.Artist, "The Artist")
	}
	if f.Album != "" || f.Year != "" || f.Comment != "" || f.Track != 0 || f.Genre != 0 {
		t.Errorf("Лишние поля заполнены: %+v", f)
	}
}

func TestTrailerScanner_SmallChunks(t *testing.T) {
	s := NewTrailerScanner()
	data := append(bytes.Repeat([]byte{0x55}, 300),
		makeTrailer("Chunked", "Feeder", "", "", "", 0, 0)...)

	// Подаём чанками меньше размера трейлера — окно должно скользить
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		s.Feed(data[i:end])
	}

	f, ok := s.Frame()
	if !ok {
		t.Fatal("Трейлер не обнаружен после почанковой подачи")
	}
	if f.Title != "Chunked" || f.Artist != "Feeder" {
		t.Errorf("Разобран фрейм %+v, ожидались Chunked/Feeder", f)
	}
}

func TestTrailerScanner_TrailerAcrossChunks(t *testing.T) {
	s := NewTrailerScanner()
	data := append(bytes.Repeat([]byte{0x11}, 200),
		makeTrailer("Split", "Boundary", "", "", "", 0, 0)...)

	// Граница чанков рассекает сам трейлер
	cut := len(data) - 64
	s.Feed(data[:cut])
	s.Feed(data[cut:])

	f, ok := s.Frame()
	if !ok {
		t.Fatal("Трейлер, рассечённый границей чанков, не обнаружен")
	}
	if f.Title != "Split" {
		t.Errorf("Title = %q, ожидалось %q", f.Title, "Split")
	}
}

func TestTrailerScanner_ID3v11Track(t *testing.T) {
	s := NewTrailerScanner()
	s.Feed(makeTrailer("T", "A", "", "", "note", 7, 13))

	f, ok := s.Frame()
	if !ok {
		t.Fatal("Трейлер не обнаружен")
	}
	if f.Track != 7 {
		t.Errorf("Track = %d, ожидалось 7", f.Track)
	}
	if f.Genre != 13 {
		t.Errorf("Genre = %d, ожидалось 13", f.Genre)
	}
	if f.Comment != "note" {
		t.Errorf("Comment = %q, ожидалось %q", f.Comment, "note")
	}
}

func TestTrailerScanner_NoTrailer(t *testing.T) {
	s := NewTrailerScanner()
	s.Feed(bytes.Repeat([]byte{0xFF}, 256))

	if _, ok := s.Frame(); ok {
		t.Error("Frame вернул трейлер в потоке без маркера TAG")
	}
}

func TestTrailerScanner_ShortStream(t *testing.T) {
	s := NewTrailerScanner()
	s.Feed([]byte("TAG short"))

	if _, ok := s.Frame(); ok {
		t.Error("Frame вернул трейлер для потока короче 128 байт")
	}
}

func TestTrailerScanner_HasID3v2(t *testing.T) {
	s := NewTrailerScanner()
	s.Feed([]byte("ID3"))
	s.Feed(bytes.Repeat([]byte{0}, 200))
	if !s.HasID3v2() {
		t.Error("Заголовок ID3v2 не обнаружен")
	}

	// Заголовок по частям
	s2 := NewTrailerScanner()
	s2.Feed([]byte("I"))
	s2.Feed([]byte("D"))
	s2.Feed([]byte("3xxx"))
	if !s2.HasID3v2() {
		t.Error("Заголовок ID3v2, поданный по байту, не обнаружен")
	}

	s3 := NewTrailerScanner()
	s3.Feed(bytes.Repeat([]byte{0xFF}, 300))
	if s3.HasID3v2() {
		t.Error("HasID3v2 сработал на потоке без заголовка")
	}
}

func TestDecodeField(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("hello\x00padding"), "hello"},
		{[]byte("trailing   "), "trailing"},
		{[]byte("\x00"), ""},
		{[]byte("   "), ""},
	}
	for _, tt := range tests {
		if got := decodeField(tt.in); got != tt.want {
			t.Errorf("decodeField(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
