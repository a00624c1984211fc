package api

import (
	"testing"
	"time"
)

func TestThrottleBlocksAfterMaxFailures(t *testing.T) {
	th := newLoginThrottle(3, time.Minute)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if blocked, _ := th.blocked("alice", now); blocked {
			t.Fatalf("blocked after %d failures", i)
		}
		th.fail("alice", now)
	}

	blocked, retry := th.blocked("alice", now)
	if !blocked {
		t.Fatal("not blocked after max failures")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry = %v, want within (0, 1m]", retry)
	}

	// Other identifiers are unaffected.
	if blocked, _ := th.blocked("bob", now); blocked {
		t.Fatal("unrelated identifier blocked")
	}
}

func TestThrottleWindowDrains(t *testing.T) {
	th := newLoginThrottle(2, time.Minute)
	now := time.Now().UTC()

	th.fail("alice", now)
	th.fail("alice", now)

	if blocked, _ := th.blocked("alice", now); !blocked {
		t.Fatal("not blocked inside window")
	}
	if blocked, _ := th.blocked("alice", now.Add(time.Minute+time.Second)); blocked {
		t.Fatal("still blocked after window drained")
	}
}

func TestThrottleResetClears(t *testing.T) {
	th := newLoginThrottle(1, time.Minute)
	now := time.Now().UTC()

	th.fail("alice", now)
	if blocked, _ := th.blocked("alice", now); !blocked {
		t.Fatal("not blocked")
	}

	th.reset("alice")
	if blocked, _ := th.blocked("alice", now); blocked {
		t.Fatal("blocked after reset")
	}
}

func TestThrottleDisabledWhenMaxZero(t *testing.T) {
	th := newLoginThrottle(0, time.Minute)
	now := time.Now().UTC()

	for i := 0; i < 100; i++ {
		th.fail("alice", now)
	}
	if blocked, _ := th.blocked("alice", now); blocked {
		t.Fatal("throttle with max=0 must never block")
	}
}
