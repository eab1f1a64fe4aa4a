package ledger

import (
	"strings"
	"testing"
)

func TestEventTopicShape(t *testing.T) {
	topic := EventTopic("Transfer(address,address,uint256)")
	if !strings.HasPrefix(topic, "0x") {
		t.Fatalf("topic %q missing 0x prefix", topic)
	}
	if len(topic) != 66 {
		t.Fatalf("topic length = %d, want 66", len(topic))
	}
	if topic == EventTopic("Approval(address,address,uint256)") {
		t.Fatalf("different signatures hashed to the same topic")
	}
	if topic != EventTopic("Transfer(address,address,uint256)") {
		t.Fatalf("topic is not stable for the same signature")
	}
}

func TestFindEventMatchesLeadingTopic(t *testing.T) {
	sig := "MemeCreated(uint256,address,string)"
	receipt := &Receipt{
		TxRef:     "0xtx",
		Succeeded: true,
		Logs: []Log{
			{Topics: []string{EventTopic("SomethingElse(uint256)"), "0x01"}},
			{Topics: []string{EventTopic(sig), "0x2a"}},
		},
	}

	log := FindEvent(receipt, sig)
	if log == nil {
		t.Fatalf("expected the creation event to be found")
	}
	if len(log.Topics) != 2 || log.Topics[1] != "0x2a" {
		t.Fatalf("wrong log matched: %+v", log)
	}
}

func TestFindEventIsCaseInsensitive(t *testing.T) {
	sig := "MemeCreated(uint256,address,string)"
	receipt := &Receipt{
		Logs: []Log{{Topics: []string{strings.ToUpper(EventTopic(sig))}}},
	}
	if FindEvent(receipt, sig) == nil {
		t.Fatalf("topic comparison should ignore hex casing")
	}
}

func TestFindEventMissing(t *testing.T) {
	receipt := &Receipt{Logs: []Log{{Topics: []string{EventTopic("Other()")}}, {}}}
	if FindEvent(receipt, "MemeCreated(uint256,address,string)") != nil {
		t.Fatalf("expected no match")
	}
	if FindEvent(nil, "MemeCreated(uint256,address,string)") != nil {
		t.Fatalf("nil receipt should yield no match")
	}
}

func TestTopicUint64(t *testing.T) {
	cases := []struct {
		topic string
		want  uint64
	}{
		{"0x000000000000000000000000000000000000000000000000000000000000002a", 42},
		{"0x0000000000000000000000000000000000000000000000000000000000000000", 0},
		{"0x1", 1},
		{"2a", 42},
	}
	for _, tc := range cases {
		got, err := TopicUint64(tc.topic)
		if err != nil {
			t.Fatalf("decode %q: %v", tc.topic, err)
		}
		if got != tc.want {
			t.Fatalf("decode %q = %d, want %d", tc.topic, got, tc.want)
		}
	}
}

func TestTopicUint64Rejects(t *testing.T) {
	if _, err := TopicUint64(""); err == nil {
		t.Fatalf("empty topic should fail")
	}
	if _, err := TopicUint64("0xnothex"); err == nil {
		t.Fatalf("non-hex topic should fail")
	}
}
