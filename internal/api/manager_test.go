package api

import "testing"

func TestManager_CachesPerKey(t *testing.T) {
	m := NewManager("http://localhost:1234/v1", testModel(), testLogger())
	defer m.CloseAll()

	a := m.Get("key-a")
	if got := m.Get("key-a"); got != a {
		t.Error("same key returned a different client")
	}
	if got := m.Get("key-b"); got == a {
		t.Error("different keys share a client")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManager_Remove(t *testing.T) {
	m := NewManager("http://localhost:1234/v1", testModel(), testLogger())
	defer m.CloseAll()

	a := m.Get("key-a")
	m.Remove("key-a")
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", m.Len())
	}

	// A fresh client is created on the next Get
	if got := m.Get("key-a"); got == a {
		t.Error("removed client was returned again")
	}
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager("http://localhost:1234/v1", testModel(), testLogger())

	m.Get("key-a")
	m.Get("key-b")
	m.Get("key-c")

	m.CloseAll()
	if m.Len() != 0 {
		t.Errorf("Len() = %d after CloseAll, want 0", m.Len())
	}
}

func TestKeyHash(t *testing.T) {
	h := keyHash("some-api-key")
	if len(h) != 16 {
		t.Errorf("hash length = %d, want 16", len(h))
	}
	if h == keyHash("other-api-key") {
		t.Error("distinct keys produced the same hash")
	}
	if h != keyHash("some-api-key") {
		t.Error("hash is not deterministic")
	}
}
