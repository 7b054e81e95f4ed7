package cmdqueue

import (
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

const queueVersion = 1

// Write emits the queue header followed by one record per pending command in
// execution order, terminated by a zero tag. Enqueue blocks until it returns.
// It reports the processed time and the number of records it wrote.
//
//	header: version u16, processed time u32, next serial u32
//	record: tag u16, category i32, sender u32, versioned payload
func (q *Queue) Write(w *codec.Writer, objs codec.ObjectSaver) (gametime.Time, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	w.WriteH(queueVersion)
	q.time.Write(w)
	w.WriteDU(q.nextSerial)
	items := q.sorted()
	for _, it := range items {
		w.WriteH(uint16(it.cmd.Tag()))
		w.WriteD(int32(it.category))
		w.WriteDU(uint32(it.cmd.Sender()))
		it.cmd.Write(w, objs)
	}
	w.WriteH(uint16(command.TagNone))
	return q.time, len(items)
}

// Read replaces the queue contents with a queue written by Write. Records
// keep their recorded due time and category, and their relative order.
// Any failure aborts the load and leaves the queue empty.
func (q *Queue) Read(r *codec.Reader, objs codec.ObjectLoader, f *command.Factory) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flush()

	version, err := r.ReadH()
	if err != nil {
		return fmt.Errorf("cmdqueue: read version: %w", err)
	}
	if version != queueVersion {
		return fmt.Errorf("cmdqueue: %w: queue version %d (supported %d)",
			command.ErrUnhandledFormatVersion, version, queueVersion)
	}
	now, err := gametime.Read(r)
	if err != nil {
		return fmt.Errorf("cmdqueue: %w", err)
	}
	nextSerial, err := r.ReadDU()
	if err != nil {
		return fmt.Errorf("cmdqueue: read next serial: %w", err)
	}

	var items []item
	for i := uint32(0); ; i++ {
		it, err := readRecord(r, objs, f)
		if err != nil {
			return fmt.Errorf("cmdqueue: record %d: %w", i, err)
		}
		if it.cmd == nil {
			break
		}
		if it.due.Before(now) {
			return fmt.Errorf("cmdqueue: record %d: %s due %s before processed time %s: %w",
				i, it.cmd.Tag(), it.due, now, ErrIllegalSchedule)
		}
		it.serial = i
		items = append(items, it)
	}
	if uint64(nextSerial) < uint64(len(items)) {
		return fmt.Errorf("cmdqueue: next serial %d below record count %d", nextSerial, len(items))
	}

	for _, it := range items {
		q.insert(it)
	}
	q.time = now
	q.nextSerial = nextSerial
	return nil
}

// readRecord returns an item with a nil command at the end marker.
func readRecord(r *codec.Reader, objs codec.ObjectLoader, f *command.Factory) (item, error) {
	tag, err := r.ReadH()
	if err != nil {
		return item{}, fmt.Errorf("read tag: %w", err)
	}
	if command.Tag(tag) == command.TagNone {
		return item{}, nil
	}
	category, err := r.ReadD()
	if err != nil {
		return item{}, fmt.Errorf("%s: read category: %w", command.Tag(tag), err)
	}
	sender, err := r.ReadDU()
	if err != nil {
		return item{}, fmt.Errorf("%s: read sender: %w", command.Tag(tag), err)
	}
	c, err := f.Create(command.Tag(tag))
	if err != nil {
		return item{}, err
	}
	if err := c.Read(r, objs); err != nil {
		return item{}, err
	}
	if s, ok := c.(command.Sendable); ok {
		if sender == 0 || sender > 0xFF {
			return item{}, fmt.Errorf("%s: bad sender %d: %w", c.Tag(), sender, command.ErrMalformedPayload)
		}
		s.SetSender(world.PlayerNumber(sender))
	}
	return item{due: c.DueTime(), category: command.Category(category), cmd: c}, nil
}
