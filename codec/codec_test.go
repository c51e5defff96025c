package codec

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/mdsession/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(n int) Table {
	t := Table{Version: 42, BackingID: uuid.New()}
	for i := 0; i < n; i++ {
		t.Sessions = append(t.Sessions, Record{
			Name:      core.ClientName(int64(n - i)),
			Addr:      fmt.Sprintf("10.0.0.%d:6800/%d", i+1, 1000+i),
			PushSeq:   uint64(i * 3),
			Completed: []uint64{uint64(i + 5), uint64(i + 1)},
		})
	}
	return t
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleTable(5)
	in.Sessions = append(in.Sessions, Record{Name: core.EntityName{Type: core.EntityMDS, Num: 0}, Addr: "10.0.1.1:6789/0"})

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in.Version, out.Version)
	assert.Equal(t, in.BackingID, out.BackingID)
	require.Len(t, out.Sessions, len(in.Sessions))

	byName := make(map[core.EntityName]Record, len(out.Sessions))
	for _, r := range out.Sessions {
		byName[r.Name] = r
	}
	for _, want := range in.Sessions {
		got, ok := byName[want.Name]
		require.True(t, ok, "missing session %s", want.Name)
		assert.Equal(t, want.Addr, got.Addr)
		assert.Equal(t, want.PushSeq, got.PushSeq)
		assert.ElementsMatch(t, want.Completed, got.Completed)
	}
}

func TestEncode_IsCanonical(t *testing.T) {
	a := sampleTable(3)
	b := a
	b.Sessions = []Record{a.Sessions[2], a.Sessions[0], a.Sessions[1]}

	da, err := Encode(a)
	require.NoError(t, err)
	db, err := Encode(b)
	require.NoError(t, err)

	assert.Equal(t, da, db, "session order must not change the blob")
	assert.Equal(t, Checksum(da), Checksum(db))
	assert.Len(t, Checksum(da), 64)
}

func TestEncode_EmptyTable(t *testing.T) {
	data, err := Encode(Table{})
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Zero(t, out.Version)
	assert.Empty(t, out.Sessions)
}

func TestEncode_RejectsUnsafeIntegers(t *testing.T) {
	in := Table{Sessions: []Record{{Name: core.ClientName(1), Completed: []uint64{1 << 60}}}}
	_, err := Encode(in)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestEncodeDecode_LargeEntityNumbers(t *testing.T) {
	for _, num := range []int64{1<<53 - 1, 1 << 53, 1<<60 + 1, math.MaxInt64, math.MinInt64} {
		t.Run(fmt.Sprint(num), func(t *testing.T) {
			in := Table{BackingID: uuid.New(), Sessions: []Record{{Name: core.ClientName(num), Addr: "a"}}}

			data, err := Encode(in)
			require.NoError(t, err)
			assert.Contains(t, string(data), fmt.Sprintf(`"num":"%d"`, num))

			out, err := Decode(data)
			require.NoError(t, err)
			require.Len(t, out.Sessions, 1)
			assert.Equal(t, core.ClientName(num), out.Sessions[0].Name)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"not json", `{{`},
		{"missing sessions", `{"version":1,"backing_id":"00000000-0000-0000-0000-000000000000"}`},
		{"unknown field", `{"version":1,"backing_id":"","sessions":[],"extra":true}`},
		{"bad entity type", `{"version":1,"backing_id":"","sessions":[{"name":{"type":"toaster","num":"1"},"addr":"","push_seq":0,"completed":[]}]}`},
		{"numeric entity num", `{"version":1,"backing_id":"","sessions":[{"name":{"type":"client","num":1},"addr":"","push_seq":0,"completed":[]}]}`},
		{"padded entity num", `{"version":1,"backing_id":"","sessions":[{"name":{"type":"client","num":"007"},"addr":"","push_seq":0,"completed":[]}]}`},
		{"negative version", `{"version":-1,"backing_id":"","sessions":[]}`},
		{"duplicate session", `{"version":1,"backing_id":"00000000-0000-0000-0000-000000000000","sessions":[` +
			`{"name":{"type":"client","num":"1"},"addr":"a","push_seq":0,"completed":[]},` +
			`{"name":{"type":"client","num":"1"},"addr":"b","push_seq":0,"completed":[]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.blob))
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestNewBackingRecord(t *testing.T) {
	a, b := NewBackingRecord(), NewBackingRecord()
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
