package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElement(t *testing.T) {
	got := Element("Job", "Name", "backup", "ID", "4")
	assert.Equal(t, "<Job><Name>backup</Name><ID>4</ID></Job>", got)

	assert.Equal(t, "<Plan></Plan>", Element("Plan"))
	assert.Panics(t, func() { Element("Job", "Name") })
}

func TestSchedule(t *testing.T) {
	got := Schedule(Element("Plan", "ID", "1"), Element("Job", "ID", "2"))
	assert.Equal(t, "<Schedule><Plan><ID>1</ID></Plan><Job><ID>2</ID></Job></Schedule>", got)
}

func TestWriteDocument(t *testing.T) {
	path := WriteDocument(t, t.TempDir(), "nightly.xml", Schedule())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<Schedule></Schedule>", string(data))
}

func TestSteppingClock(t *testing.T) {
	c := NewSteppingClock()

	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(1e9), c.Now())
}
