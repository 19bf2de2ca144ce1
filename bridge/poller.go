//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/membridge/membridge/log"
	"github.com/membridge/membridge/remote"
	"github.com/membridge/membridge/state"
)

// Poller drives one conversation's summarization task through its
// lifecycle on a fixed-interval timer. Ticks never block on the
// network: remote calls run as fire-and-forget continuations whose
// writes are gated by the state version they read, so a slow response
// can be discarded but never clobbers newer state.
type Poller struct {
	c *Coordinator

	mu         sync.Mutex
	cancel     context.CancelFunc
	terminated bool
}

func newPoller(c *Coordinator) *Poller {
	return &Poller{c: c}
}

// Start begins ticking. Starting an already running poller is a no-op;
// starting a stopped one resets the terminated flag.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.terminated = false
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop cancels the timer and marks the poller terminated. Continuations
// already dispatched are not cancelled; only further scheduling stops.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Running reports whether the poller is currently scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.c.opts.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one state-machine step. Every branch catches and logs its
// failures; a tick's failure never prevents the next scheduled tick.
func (p *Poller) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("bridge: panic in poller tick for conversation %s: %v", p.c.conv.ID(), r)
		}
	}()

	p.mu.Lock()
	terminated := p.terminated
	p.mu.Unlock()
	if terminated {
		return
	}

	st, err := p.c.snapshot(ctx)
	if err != nil {
		log.Warnf("bridge: poller load state failed for conversation %s: %v", p.c.conv.ID(), err)
		return
	}
	task := st.Summary
	if task == nil {
		return
	}
	seq := st.Seq

	switch task.Status {
	case state.TaskPending, state.TaskProcessing:
		t := *task
		p.c.run(func() { p.pollStatus(ctx, t, seq) })

	case state.TaskSuccess:
		if st.Retrieve != nil && st.Retrieve.Current != nil && st.Retrieve.Current.TaskID == task.TaskID {
			// Already retrieved for this task.
			return
		}
		t := *task
		if !task.IsReady {
			p.c.run(func() { p.pollReadiness(ctx, t, seq) })
			return
		}
		if st.BaseInfo == nil {
			log.Warnf("bridge: task %s succeeded but conversation %s has no base info, skipping retrieval",
				task.TaskID, p.c.conv.ID())
			return
		}
		bi := *st.BaseInfo
		p.c.run(func() { p.retrieve(ctx, t, bi, seq) })

	case state.TaskFailure:
		if !task.Range.Valid() {
			log.Warnf("bridge: failed task for conversation %s has malformed range [%d,%d), not retrying",
				p.c.conv.ID(), task.Range.From, task.Range.To)
			return
		}
		r := task.Range
		p.c.run(func() {
			if err := p.c.Submit(ctx, r.From, r.To); err != nil {
				log.Warnf("bridge: retry submission for conversation %s failed: %v", p.c.conv.ID(), err)
			}
		})

	default:
		log.Warnf("bridge: unknown task status %q for conversation %s", task.Status, p.c.conv.ID())
	}
}

// pollStatus queries the remote status and overwrites the stored task
// with the mapped result. Poll failures leave the task untouched for
// the next tick.
func (p *Poller) pollStatus(ctx context.Context, task state.SummaryTask, seq uint64) {
	resp, err := p.c.client.TaskStatus(ctx, task.TaskID)
	if err != nil {
		log.Warnf("bridge: status poll for task %s failed: %v", task.TaskID, err)
		return
	}
	mapped := state.ParseTaskStatus(resp.Status)
	applied, err := p.c.commitIf(ctx, seq, func(st *state.MemoryState) {
		st.Summary = &state.SummaryTask{
			Range:  task.Range,
			TaskID: task.TaskID,
			Status: mapped,
		}
	})
	if err != nil {
		log.Warnf("bridge: persist status for task %s failed: %v", task.TaskID, err)
		return
	}
	if !applied {
		log.Debugf("bridge: stale status poll for task %s discarded", task.TaskID)
	}
}

// pollReadiness queries whether the summarized categories are
// fetchable and records the flag. Content is not retrieved yet.
func (p *Poller) pollReadiness(ctx context.Context, task state.SummaryTask, seq uint64) {
	resp, err := p.c.client.SummaryReady(ctx, task.TaskID, p.c.opts.readyGroup)
	if err != nil {
		log.Warnf("bridge: readiness poll for task %s failed: %v", task.TaskID, err)
		return
	}
	applied, err := p.c.commitIf(ctx, seq, func(st *state.MemoryState) {
		if st.Summary != nil && st.Summary.TaskID == task.TaskID {
			st.Summary.IsReady = resp.AllReady
		}
	})
	if err != nil {
		log.Warnf("bridge: persist readiness for task %s failed: %v", task.TaskID, err)
		return
	}
	if !applied {
		log.Debugf("bridge: stale readiness poll for task %s discarded", task.TaskID)
	}
}

// retrieve fetches the categorized summary, flattens it and makes it
// the current retrieval record, pushing any previous record onto the
// history. Errors leave the task as-is for retry next tick.
func (p *Poller) retrieve(ctx context.Context, task state.SummaryTask, bi state.BaseInfo, seq uint64) {
	resp, err := p.c.client.DefaultCategories(ctx, &remote.DefaultCategoriesRequest{
		UserID:  bi.UserID,
		AgentID: bi.AgentID,
	})
	if err != nil {
		log.Warnf("bridge: category retrieval for task %s failed, retrying next tick: %v", task.TaskID, err)
		return
	}
	rec := state.RetrievalRecord{
		Range:       task.Range,
		TaskID:      task.TaskID,
		SummaryText: FlattenCategories(resp.Categories),
	}
	applied, err := p.c.commitIf(ctx, seq, func(st *state.MemoryState) {
		if st.Retrieve == nil {
			st.Retrieve = &state.RetrievalHistory{}
		}
		st.Retrieve.Append(rec)
	})
	if err != nil {
		log.Warnf("bridge: persist retrieval for task %s failed: %v", task.TaskID, err)
		return
	}
	if !applied {
		log.Debugf("bridge: stale retrieval for task %s discarded", task.TaskID)
		return
	}
	log.Infof("bridge: stored summary for conversation %s from task %s (%d categories)",
		p.c.conv.ID(), task.TaskID, len(resp.Categories))
}

// FlattenCategories renders categorized results as "[Name] summary"
// lines. Categories without summary text are skipped.
func FlattenCategories(categories []remote.Category) string {
	var lines []string
	for _, cat := range categories {
		if cat.Summary == "" {
			continue
		}
		lines = append(lines, "["+cat.Name+"] "+cat.Summary)
	}
	return strings.Join(lines, "\n")
}
