package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "admin")

	v, ok := c.Get("k")

	if !ok || v != "admin" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("Get found a key that was never set")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("k", "admin")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry survived its ttl")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "admin")
	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry survived delete")
	}

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry survived clear")
	}
}
