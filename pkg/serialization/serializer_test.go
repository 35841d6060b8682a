/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serializer_test.go
Description: Tests for graph serialization across codecs and compression modes.
*/

package serialization_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *graph.GraphSnapshot {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &graph.GraphSnapshot{
		InitialStateID: "s1",
		States: []*graph.DiscoveredState{
			{
				ID:          "s1",
				Fingerprint: "fp1",
				Observation: &interfaces.Observation{
					Location:              "app://home",
					VisualFingerprint:     "v1",
					StructuralFingerprint: "st1",
					PersistedContext:      map[string]string{"theme": "dark"},
					ActionSpaceSize:       1,
					Actions: []interfaces.ActionDescriptor{
						{TargetRef: "#about", Kind: interfaces.ActionLink, Confidence: 0.9, Label: "About"},
					},
					CapturedAt: now,
				},
				VisitCount:      3,
				FirstVisitTime:  now,
				LastVisitTime:   now,
				OutgoingEdgeIDs: []string{"t1"},
			},
			{ID: "s2", Fingerprint: "fp2", VisitCount: 1, FirstVisitTime: now, LastVisitTime: now, IncomingEdgeIDs: []string{"t1"}, IsTerminal: true},
		},
		Transitions: []*graph.Transition{
			{ID: "t1", FromStateID: "s1", ToStateID: "s2", ActionKind: interfaces.ActionLink, TargetRef: "#about", Count: 2, FirstSeen: now, LastSeen: now},
		},
		Statistics: graph.GraphStatistics{TotalStates: 2, TotalTransitions: 1, MaxDepth: 1, AverageBranchingFactor: 1},
		Coverage:   1,
		CapturedAt: now,
	}
}

// TestSerializerPipelines tests every codec and compression combination
func TestSerializerPipelines(t *testing.T) {
	codecs := []string{"json", "json-pretty", "msgpack"}
	compressions := []string{"none", "gzip", "zstd"}

	for _, codec := range codecs {
		for _, compression := range compressions {
			t.Run(codec+"/"+compression, func(t *testing.T) {
				s, err := serialization.NewSerializer(codec, compression)
				require.NoError(t, err)

				want := sampleSnapshot()
				data, err := s.Serialize(want)
				require.NoError(t, err)
				require.NotEmpty(t, data)

				got := &graph.GraphSnapshot{}
				require.NoError(t, s.Deserialize(data, got))

				diff := cmp.Diff(want, got,
					cmpopts.EquateEmpty(),
					cmpopts.EquateApproxTime(time.Millisecond),
				)
				assert.Empty(t, diff)
			})
		}
	}
}

// TestSerializerErrors tests unknown names and corrupt input
func TestSerializerErrors(t *testing.T) {
	_, err := serialization.NewSerializer("xml", "none")
	assert.ErrorIs(t, err, serialization.ErrUnknownCodec)

	_, err = serialization.NewSerializer("json", "lzma")
	assert.ErrorIs(t, err, serialization.ErrUnknownCompression)

	s, err := serialization.NewSerializer("json", "gzip")
	require.NoError(t, err)
	assert.Error(t, s.Deserialize([]byte("not gzip"), &graph.GraphSnapshot{}))

	codec, err := serialization.CodecByName("MessagePack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", codec.Name())
}
