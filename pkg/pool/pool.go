package pool

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/emove/strand/log"
	"github.com/panjf2000/ants/v2"
)

var (
	// DefaultPoolSize sets up the capacity of the worker pool, 1024.
	// Dial tasks are short-lived and few, there is no need for a large pool.
	DefaultPoolSize = 1 << 10
)

const (
	// ExpiryDuration is the interval time to clean up those expired workers.
	ExpiryDuration = 10 * time.Second

	// Nonblocking decides what to do when submitting a new task to a full worker pool: waiting for a available worker
	// or returning nil directly.
	Nonblocking = true
)

type logger struct {
}

func (*logger) Printf(format string, a ...interface{}) {
	log.Errorf(format, a...)
}

func init() {
	// It releases the default pool from ants.
	ants.Release()
}

// Pool is the alias of ants.Pool.
type Pool = ants.Pool

var global *Pool

// Init instantiates a non-blocking *Pool with the capacity of DefaultPoolSize.
func Init() {
	if global != nil {
		global.Release()
	}
	options := ants.Options{
		ExpiryDuration: ExpiryDuration,
		Nonblocking:    Nonblocking,
		PanicHandler: func(err interface{}) {
			log.Errorf("panic on worker: %v,\n %s", err, string(debug.Stack()))
		},
		Logger: &logger{},
	}
	global, _ = ants.NewPool(DefaultPoolSize, ants.WithOptions(options))
}

var once sync.Once

// Submit runs task on the pool, falling back to a plain goroutine
// when the pool is unavailable or full.
func Submit(task func()) {
	once.Do(func() {
		if global == nil {
			Init()
		}
	})
	if global != nil {
		err := global.Submit(task)
		if err == nil {
			return
		}
		log.Warnw("goroutine pool err", err)
	}
	go task()
}

func Release() {
	if global != nil {
		global.Reboot()
	}
}
