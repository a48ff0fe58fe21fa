package application

import "sync"

// tickerLocks 按 ticker 串行化资产价格的读-改-写，引用计数归零后回收
type tickerLocks struct {
	mu    sync.Mutex
	locks map[string]*tickerLock
}

type tickerLock struct {
	mu   sync.Mutex
	refs int
}

func newTickerLocks() *tickerLocks {
	return &tickerLocks{locks: make(map[string]*tickerLock)}
}

// lock 获取 ticker 的互斥锁，返回释放函数
func (l *tickerLocks) lock(ticker string) func() {
	l.mu.Lock()
	tl, ok := l.locks[ticker]
	if !ok {
		tl = &tickerLock{}
		l.locks[ticker] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, ticker)
		}
		l.mu.Unlock()
	}
}

func (l *tickerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
