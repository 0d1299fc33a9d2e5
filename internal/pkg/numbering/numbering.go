// Package numbering выдаёт человекочитаемые номера заказов и споров
// вида PREFIX-YYYYMMDDhhmmss-XXXXXX. Уникальность дополнительно
// гарантируется ограничением в базе.
package numbering

import (
	"fmt"
	"time"

	"github.com/jaevor/go-nanoid"
)

const (
	PrefixOrder   = "WC"
	PrefixDispute = "DISP"
	PrefixPayment = "MOCK"

	suffixAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength    = 6
	timestampLayout = "20060102150405"
)

// Generator выдаёт номера с заданным префиксом.
type Generator struct {
	prefix string
	suffix func() string
	clock  func() time.Time
}

// New создаёт генератор. Часы всегда берутся в UTC.
func New(prefix string) (*Generator, error) {
	suffix, err := nanoid.CustomASCII(suffixAlphabet, suffixLength)
	if err != nil {
		return nil, fmt.Errorf("numbering: не удалось создать генератор: %w", err)
	}
	return &Generator{
		prefix: prefix,
		suffix: suffix,
		clock:  time.Now,
	}, nil
}

// MustNew - как New, но паникует при ошибке. Для инициализации при старте.
func MustNew(prefix string) *Generator {
	g, err := New(prefix)
	if err != nil {
		panic(err)
	}
	return g
}

// Next возвращает очередной номер.
func (g *Generator) Next() string {
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.clock().UTC().Format(timestampLayout), g.suffix())
}

// Reference возвращает короткий номер без даты: PREFIX-XXXXXX.
func (g *Generator) Reference() string {
	return fmt.Sprintf("%s-%s", g.prefix, g.suffix())
}
