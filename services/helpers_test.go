package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/realtime"
)

type published struct {
	Topic string
	Msg   realtime.Message
}

type recordingPublisher struct {
	mu  sync.Mutex
	out []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{Topic: topic, Msg: msg})
	return nil
}

func (p *recordingPublisher) events(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []string
	for _, m := range p.out {
		if m.Topic == topic {
			events = append(events, m.Msg.Event)
		}
	}
	return events
}

type fakeStorage struct {
	removed []string
}

func (f *fakeStorage) PresignUpload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + key + "?sig=abc", nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://storage.test/images/" + key
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func newTestCache() caching.CacheService {
	return caching.NewMemoryCacheService()
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
