package utils

import (
	"log"
	"runtime/debug"
	"sync"
)

// SafeGo 拦截 panic 的 goroutine，name 用于日志定位
// wg 非空时自动 Add/Done
func SafeGo(name string, wg *sync.WaitGroup, fn func()) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[%s] panic recovered: %v\n%s", name, err, debug.Stack())
			}
		}()
		fn()
	}()
}
