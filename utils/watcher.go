package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce 文件变化防抖间隔
const DefaultDebounce = 500 * time.Millisecond

// WatchPaths 监控文件或目录，变化经防抖后回调 onChange；阻塞直到 ctx 结束
func WatchPaths(ctx context.Context, paths []string, debounce time.Duration, onChange func(name string), log *zap.SugaredLogger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建监控器失败: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		watched[p] = true
		if err := watcher.Add(p); err != nil {
			log.Warnf("[监控] 添加监控失败 %s: %v", p, err)
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		mu      sync.Mutex
		timer   *time.Timer
		pending string
		readds  []*time.Timer
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		for _, r := range readds {
			r.Stop()
		}
	}()

	fire := func() {
		mu.Lock()
		name := pending
		mu.Unlock()
		log.Infof("[监控] 文件已修改: %s", name)
		onChange(name)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// 忽略无用事件
			if event.Op == fsnotify.Chmod {
				continue
			}

			mu.Lock()
			// 原子写入会替换文件，重新添加监控
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 && watched[filepath.Clean(event.Name)] {
				name := event.Name
				readds = append(readds, time.AfterFunc(100*time.Millisecond, func() {
					_ = watcher.Add(name)
				}))
			}
			pending = event.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, fire)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("[监控] 错误: %v", err)
		}
	}
}
