package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/warmconnects-backend/internal/logger"
)

// Group запускает фоновые горутины с перехватом panic и ждёт их завершения при остановке.
type Group struct {
	wg sync.WaitGroup
}

// Go запускает fn в отдельной горутине. Panic логируется вместе со стеком и не роняет процесс.
func (g *Group) Go(ctx context.Context, name string, fn func(context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer Recover(name)
		fn(ctx)
	}()
}

// Wait ждёт завершения всех запущенных горутин.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Recover перехватывает panic. Вызывать только через defer.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("panic в фоновой горутине")
	}
}

// SafeGo - то же, что Group.Go, но без ожидания.
func SafeGo(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer Recover(name)
		fn(ctx)
	}()
}
