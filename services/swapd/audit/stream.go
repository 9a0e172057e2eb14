package audit

import "context"

const subscriberBuffer = 16

// Subscribe returns a channel receiving every entry appended after the call.
// The channel is closed when ctx is done. Slow subscribers miss entries
// rather than block appends.
func (l *Log) Subscribe(ctx context.Context) <-chan Entry {
	ch := make(chan Entry, subscriberBuffer)
	l.subsMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		l.subsMu.Lock()
		delete(l.subs, id)
		l.subsMu.Unlock()
		close(ch)
	}()
	return ch
}

func (l *Log) publish(entry Entry) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for _, ch := range l.subs {
		select {
		case ch <- entry:
		default:
			l.logger.Warn("audit subscriber lagging, dropping entry")
		}
	}
}
