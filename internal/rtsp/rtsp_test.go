package rtsp

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

type fakePusher struct {
	startCalls, restartCalls, stopCalls int
	pushResults                        []bool
	pushCalls                          int
}

func (f *fakePusher) Start() bool { f.startCalls++; return true }
func (f *fakePusher) Restart() bool {
	f.restartCalls++
	return true
}
func (f *fakePusher) Stop() { f.stopCalls++ }
func (f *fakePusher) Push(frame gocv.Mat) bool {
	ok := f.pushResults[f.pushCalls]
	f.pushCalls++
	return ok
}

func TestBroadcaster_WarnsOnceAfterDropWindow(t *testing.T) {
	fp := &fakePusher{pushResults: []bool{false, false, false, false}}
	b := NewBroadcaster(fp, HealthConfig{RecoverCooldownSeconds: 1000, DropWarnSeconds: 5}, nil)

	base := time.Unix(0, 0)
	frame := gocv.NewMat()
	defer frame.Close()

	if ok := b.Push(frame, base); ok {
		t.Fatalf("expected push failure")
	}
	if b.dropWarned {
		t.Fatalf("should not warn before drop_warn_seconds elapses")
	}

	if ok := b.Push(frame, base.Add(10*time.Second)); ok {
		t.Fatalf("expected push failure")
	}
	if !b.dropWarned {
		t.Fatalf("expected drop warning after exceeding drop_warn_seconds")
	}

	_, fail, _ := b.Stats()
	if fail != 2 {
		t.Fatalf("fail count = %d, want 2", fail)
	}
}

func TestBroadcaster_RestartIsCooldownGated(t *testing.T) {
	fp := &fakePusher{pushResults: []bool{false, false, false}}
	b := NewBroadcaster(fp, HealthConfig{RecoverCooldownSeconds: 10, DropWarnSeconds: 1000}, nil)

	frame := gocv.NewMat()
	defer frame.Close()
	base := time.Unix(0, 0)

	b.Push(frame, base)
	b.Push(frame, base.Add(2*time.Second)) // within cooldown: no second restart attempt
	b.Push(frame, base.Add(11*time.Second))

	if fp.restartCalls != 2 {
		t.Fatalf("restartCalls = %d, want 2 (first failure + after cooldown elapsed)", fp.restartCalls)
	}
}

func TestBroadcaster_RecoveryLogsAndResetsFailingState(t *testing.T) {
	fp := &fakePusher{pushResults: []bool{false, true}}
	b := NewBroadcaster(fp, HealthConfig{RecoverCooldownSeconds: 1000, DropWarnSeconds: 1000}, nil)

	frame := gocv.NewMat()
	defer frame.Close()
	base := time.Unix(0, 0)

	b.Push(frame, base)
	ok := b.Push(frame, base.Add(1*time.Second))
	if !ok {
		t.Fatalf("expected second push to succeed")
	}
	if b.failing {
		t.Fatalf("failing flag should clear on successful push")
	}

	success, fail, recover := b.Stats()
	if success != 1 || fail != 1 || recover != 1 {
		t.Fatalf("stats = (%d,%d,%d), want (1,1,1)", success, fail, recover)
	}
}
