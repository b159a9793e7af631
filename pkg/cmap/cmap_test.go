package cmap

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultShardCount},
		{-3, DefaultShardCount},
		{1, 1},
		{5, 8},
		{32, 32},
	}
	for _, tt := range tests {
		if got := NewWithShards[string, int](tt.in).ShardCount(); got != tt.want {
			t.Errorf("NewWithShards(%d).ShardCount() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()

	if _, ok := m.Get("a"); ok {
		t.Error("Get on empty map reported a value")
	}
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = %d, %v; want 3, true", v, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	m.Delete("a")
	m.Delete("missing")
	if _, ok := m.Get("a"); ok {
		t.Error("Get(a) after Delete reported a value")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

type clientID string

func TestMap_StringType(t *testing.T) {
	m := New[clientID, string]()
	m.Set(clientID("10.0.0.1"), "x")
	if v, _ := m.Get("10.0.0.1"); v != "x" {
		t.Errorf("Get() = %q, want x", v)
	}
}

func TestMap_GetOrCreate(t *testing.T) {
	m := New[string, *int]()
	calls := 0
	create := func() *int {
		calls++
		v := calls
		return &v
	}

	first := m.GetOrCreate("k", create)
	second := m.GetOrCreate("k", create)
	if first != second || calls != 1 {
		t.Errorf("GetOrCreate created %d values, want 1", calls)
	}
}

func TestMap_GetOrCreateConcurrent(t *testing.T) {
	m := New[string, *int64]()
	var created atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := strconv.Itoa(j % 10)
				v := m.GetOrCreate(key, func() *int64 {
					created.Add(1)
					return new(int64)
				})
				atomic.AddInt64(v, 1)
			}
		}()
	}
	wg.Wait()

	if got := created.Load(); got != 10 {
		t.Errorf("created = %d, want 10", got)
	}
	var total int64
	m.Range(func(_ string, v *int64) bool {
		total += atomic.LoadInt64(v)
		return true
	})
	if total != 64*100 {
		t.Errorf("total = %d, want %d", total, 64*100)
	}
}

func TestMap_DeleteFunc(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 100; i++ {
		m.Set(strconv.Itoa(i), i)
	}

	removed := m.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	if removed != 50 {
		t.Errorf("DeleteFunc() = %d, want 50", removed)
	}
	if m.Len() != 50 {
		t.Errorf("Len() = %d, want 50", m.Len())
	}
	m.Range(func(k string, v int) bool {
		if v%2 == 0 {
			t.Errorf("entry %s survived DeleteFunc", k)
		}
		return true
	})
}

func TestMap_RangeStop(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 20; i++ {
		m.Set(strconv.Itoa(i), i)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("visited = %d, want 3", visited)
	}
}
