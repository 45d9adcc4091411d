// Пакет id3 — потоковый разбор метаданных MP3-клипа.
//
// Клиент кодирует метаданные трейлером ID3v1: последние 128 байт потока,
// начинающиеся с "TAG". Пакет не декодирует аудио (корректность кодека вне
// зоны ответственности) — TrailerScanner лишь накапливает хвост потока по
// мере прохождения чанков и фиксирует наличие заголовка ID3v2 в начале:
// v2-фреймов в загрузке быть не должно вовсе.
package id3

import "strings"

// trailerSize — размер трейлера ID3v1.
const trailerSize = 128

// Frame — разобранный трейлер ID3v1 (с учётом track из ID3v1.1).
type Frame struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Track   byte
	Genre   byte
}

// TrailerScanner накапливает последние 128 байт потока и первые байты
// для обнаружения заголовка ID3v2. Не потокобезопасен: один сканер
// обслуживает один поток загрузки.
type TrailerScanner struct {
	head    [3]byte
	headLen int
	tail    [trailerSize]byte
	tailLen int
	total   int64
}

// NewTrailerScanner создаёт сканер для одного потока.
func NewTrailerScanner() *TrailerScanner {
	return &TrailerScanner{}
}

// Feed передаёт сканеру очередной чанк потока.
func (s *TrailerScanner) Feed(p []byte) {
	s.total += int64(len(p))

	// Первые байты — для проверки заголовка ID3v2
	for i := 0; s.headLen < len(s.head) && i < len(p); i++ {
		s.head[s.headLen] = p[i]
		s.headLen++
	}

	// Скользящее окно последних 128 байт
	if len(p) >= trailerSize {
		copy(s.tail[:], p[len(p)-trailerSize:])
		s.tailLen = trailerSize
		return
	}
	keep := trailerSize - len(p)
	if s.tailLen > keep {
		copy(s.tail[:], s.tail[s.tailLen-keep:s.tailLen])
		s.tailLen = keep
	}
	copy(s.tail[s.tailLen:], p)
	s.tailLen += len(p)
}

// Total возвращает суммарное количество переданных байт.
func (s *TrailerScanner) Total() int64 {
	return s.total
}

// HasID3v2 сообщает, начинался ли поток заголовком ID3v2.
func (s *TrailerScanner) HasID3v2() bool {
	return s.headLen == 3 && s.head[0] == 'I' && s.head[1] == 'D' && s.head[2] == '3'
}

// Frame декодирует трейлер ID3v1 по окончании потока.
// Второй результат false — трейлер отсутствует (поток короче 128 байт
// или нет маркера "TAG").
func (s *TrailerScanner) Frame() (Frame, bool) {
	if s.tailLen < trailerSize {
		return Frame{}, false
	}
	t := s.tail[:]
	if t[0] != 'T' || t[1] != 'A' || t[2] != 'G' {
		return Frame{}, false
	}

	f := Frame{
		Title:  decodeField(t[3:33]),
		Artist: decodeField(t[33:63]),
		Album:  decodeField(t[63:93]),
		Year:   decodeField(t[93:97]),
		Genre:  t[127],
	}

	// ID3v1.1: нулевой байт на позиции 125 и ненулевой на 126 — номер трека
	comment := t[97:127]
	if comment[28] == 0 && comment[29] != 0 {
		f.Track = comment[29]
		comment = comment[:28]
	}
	f.Comment = decodeField(comment)

	return f, true
}

// decodeField обрезает поле фиксированной ширины по первому NUL
// и убирает хвостовые пробелы (паддинг ID3v1).
func decodeField(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " ")
}
