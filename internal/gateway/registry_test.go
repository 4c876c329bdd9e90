// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	if !r.Register("c1", "u1") {
		t.Error("first connection should transition u1 to online")
	}
	if r.Register("c2", "u1") {
		t.Error("second connection should not report a transition")
	}

	conns := r.ConnectionsOf("u1")
	if len(conns) != 2 || conns[0] != "c1" || conns[1] != "c2" {
		t.Errorf("ConnectionsOf(u1) = %v, want [c1 c2]", conns)
	}
	if !r.IsOnline("u1") {
		t.Error("u1 should be online")
	}
	if r.IsOnline("u2") {
		t.Error("u2 should not be online")
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1")

	// Re-registering an existing connection is a no-op, even under a
	// different principal.
	if r.Register("c1", "u2") {
		t.Error("re-register should not report a transition")
	}
	if p, _ := r.PrincipalOf("c1"); p != "u1" {
		t.Errorf("PrincipalOf(c1) = %q, want u1", p)
	}
	if r.IsOnline("u2") {
		t.Error("u2 must not come online from a re-register")
	}
	if r.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", r.ConnectionCount())
	}
}

func TestRegistryRejectsEmptyIDs(t *testing.T) {
	r := NewRegistry()
	if r.Register("", "u1") || r.Register("c1", "") {
		t.Error("empty ids must not register")
	}
	if r.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0", r.ConnectionCount())
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1")
	r.Register("c2", "u1")

	principal, wentOffline := r.Unregister("c1")
	if principal != "u1" || wentOffline {
		t.Errorf("Unregister(c1) = (%q, %v), want (u1, false)", principal, wentOffline)
	}
	if !r.IsOnline("u1") {
		t.Error("u1 should still be online with c2 attached")
	}

	principal, wentOffline = r.Unregister("c2")
	if principal != "u1" || !wentOffline {
		t.Errorf("Unregister(c2) = (%q, %v), want (u1, true)", principal, wentOffline)
	}
	if r.IsOnline("u1") {
		t.Error("u1 should be offline")
	}

	// Double unregister is a no-op.
	principal, wentOffline = r.Unregister("c2")
	if principal != "" || wentOffline {
		t.Errorf("second Unregister(c2) = (%q, %v), want empty no-op", principal, wentOffline)
	}
}

func TestRegistryBidirectionalConsistency(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Register(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i%2))
	}
	r.Unregister("c2")

	for _, u := range []string{"u0", "u1"} {
		for _, c := range r.ConnectionsOf(u) {
			p, ok := r.PrincipalOf(c)
			if !ok || p != u {
				t.Errorf("connection %s of %s maps back to (%q, %v)", c, u, p, ok)
			}
		}
	}
	if _, ok := r.PrincipalOf("c2"); ok {
		t.Error("c2 should be gone from the reverse index")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			r.Register(conn, fmt.Sprintf("u%d", i%5))
			r.IsOnline("u0")
			r.Unregister(conn)
		}(i)
	}
	wg.Wait()

	if r.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0 after all unregister", r.ConnectionCount())
	}
	if r.PrincipalCount() != 0 {
		t.Errorf("PrincipalCount = %d, want 0", r.PrincipalCount())
	}
}
