package httpmiddleware

import "testing"

func TestTokenBucketExhausts(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d denied before capacity reached", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request allowed beyond capacity")
	}
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	l := NewSimpleTokenBucket(1, 1)
	if !l.Allow("a@x.com") {
		t.Fatal("first key denied")
	}
	if l.Allow("a@x.com") {
		t.Fatal("first key not exhausted")
	}
	if !l.Allow("b@x.com") {
		t.Fatal("second key affected by first key's bucket")
	}
}
