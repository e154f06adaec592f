package debounce

import (
	"strings"
	"sync"
	"time"
)

const DefaultDelay = 500 * time.Millisecond

// Debouncer схлопывает серию значений в одно settle-событие после паузы delay.
// Пустое (или из одних пробелов) значение отдаётся сразу, без паузы.
//
// emit вызывается под внутренним локом, поэтому события приходят строго
// в порядке Push. emit не должен вызывать методы Debouncer.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	emit    func(value string)
	timer   *time.Timer
	gen     uint64
	pending string
	armed   bool
	stopped bool
}

func New(delay time.Duration, emit func(value string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay: delay,
		emit:  emit,
	}
}

// Push отменяет ожидающий таймер и либо взводит новый, либо (для пустого значения)
// эмитит сразу.
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if strings.TrimSpace(value) == "" {
		d.pending = ""
		d.armed = false
		d.emit(value)
		return
	}

	d.pending = value
	d.armed = true
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending - значение, которое ещё ждёт конца паузы
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.armed
}

// Cancel выбрасывает ожидающее значение без эмита
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.disarm()
}

// Stop - после него Push ничего не делает
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	d.disarm()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// таймер уже перебит более свежим Push
	if d.stopped || gen != d.gen || !d.armed {
		return
	}

	value := d.pending
	d.pending = ""
	d.armed = false
	d.timer = nil
	d.emit(value)
}

func (d *Debouncer) disarm() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = ""
	d.armed = false
}
