package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/testforge/pkg/agent/tools"
	"github.com/entrhq/testforge/pkg/types"
)

type fakeDriver struct {
	url      string
	title    string
	content  string
	err      error
	navigate []NavigateOptions
	clicks   []ClickOptions
	fills    []FillOptions
	waits    []WaitOptions
}

func (d *fakeDriver) Navigate(url string, opts NavigateOptions) error {
	if d.err != nil {
		return d.err
	}
	d.url = url
	d.navigate = append(d.navigate, opts)
	return nil
}

func (d *fakeDriver) Click(opts ClickOptions) error {
	d.clicks = append(d.clicks, opts)
	return d.err
}

func (d *fakeDriver) Fill(opts FillOptions) error {
	d.fills = append(d.fills, opts)
	return d.err
}

func (d *fakeDriver) Wait(opts WaitOptions) error {
	d.waits = append(d.waits, opts)
	return d.err
}

func (d *fakeDriver) Content() (string, error) {
	return d.content, d.err
}

func (d *fakeDriver) Info() PageInfo {
	return PageInfo{URL: d.url, Title: d.title}
}

func args(inner string) []byte {
	return []byte("<arguments>" + inner + "</arguments>")
}

func TestToolsForNamesAreUnique(t *testing.T) {
	reg, err := tools.NewRegistry(ToolsFor(&fakeDriver{})...)
	require.NoError(t, err)

	assert.Equal(t, []string{
		ClickToolName, FillToolName, NavigateToolName, SnapshotToolName, WaitToolName,
	}, reg.Names())
	for _, tool := range reg.List() {
		assert.False(t, tool.IsLoopBreaking(), tool.Name())
		assert.NotEmpty(t, tool.Description(), tool.Name())
	}
}

func TestNavigateTool(t *testing.T) {
	d := &fakeDriver{title: "Shop"}
	tool := NewNavigateTool(d)

	out, meta, err := tool.Execute(context.Background(), args("<url>https://shop.test/</url>"))
	require.NoError(t, err)
	assert.Contains(t, out, "Navigation successful")
	assert.Contains(t, out, "Title: Shop")
	assert.Equal(t, "https://shop.test/", meta["url"])
	require.Len(t, d.navigate, 1)
	assert.Equal(t, "load", d.navigate[0].WaitUntil)

	_, _, err = tool.Execute(context.Background(), args(""))
	assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))

	_, _, err = tool.Execute(context.Background(), args("<url>https://shop.test/</url><wait_until>forever</wait_until>"))
	assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))
}

func TestNavigateToolDriverFailure(t *testing.T) {
	d := &fakeDriver{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	_, _, err := NewNavigateTool(d).Execute(context.Background(), args("<url>https://nowhere.test/</url>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
	assert.False(t, types.IsKind(err, types.ErrKindInternal))
}

func TestClickTool(t *testing.T) {
	d := &fakeDriver{url: "https://shop.test/"}
	tool := NewClickTool(d)

	out, _, err := tool.Execute(context.Background(), args("<selector>#buy</selector><click_count>2</click_count>"))
	require.NoError(t, err)
	assert.Contains(t, out, "double click")
	require.Len(t, d.clicks, 1)
	assert.Equal(t, ClickOptions{Selector: "#buy", Button: "left", ClickCount: 2}, d.clicks[0])

	tests := map[string]string{
		"missing selector": "<button>left</button>",
		"bad button":       "<selector>#buy</selector><button>thumb</button>",
		"bad count":        "<selector>#buy</selector><click_count>9</click_count>",
		"bad timeout":      "<selector>#buy</selector><timeout>999999</timeout>",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := tool.Execute(context.Background(), args(in))
			assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))
		})
	}
	assert.Len(t, d.clicks, 1)
}

func TestFillTool(t *testing.T) {
	d := &fakeDriver{}
	tool := NewFillTool(d)

	_, _, err := tool.Execute(context.Background(), args(`<selector>input[name="q"]</selector><value>shoes</value><timeout>500</timeout>`))
	require.NoError(t, err)
	require.Len(t, d.fills, 1)
	assert.Equal(t, FillOptions{Selector: `input[name="q"]`, Value: "shoes", Timeout: 500}, d.fills[0])

	_, _, err = tool.Execute(context.Background(), args("<value>x</value>"))
	assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))
}

func TestWaitTool(t *testing.T) {
	d := &fakeDriver{}
	tool := NewWaitTool(d)

	_, _, err := tool.Execute(context.Background(), args("<selector>.cart</selector>"))
	require.NoError(t, err)
	require.Len(t, d.waits, 1)
	assert.Equal(t, "visible", d.waits[0].State)

	_, _, err = tool.Execute(context.Background(), args("<selector>.cart</selector><state>gone</state>"))
	assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))
}

func TestSnapshotTool(t *testing.T) {
	d := &fakeDriver{
		url:     "https://shop.test/",
		content: `<html><head><title>Shop</title></head><body><button data-testid="buy">Buy</button><script>x()</script></body></html>`,
	}

	out, meta, err := NewSnapshotTool(d, 0).Execute(context.Background(), args(""))
	require.NoError(t, err)
	assert.Contains(t, out, "URL: https://shop.test/")
	assert.Contains(t, out, "Title: Shop")
	assert.Contains(t, out, `<button data-testid="buy">Buy</button>`)
	assert.NotContains(t, out, "x()")
	assert.Equal(t, false, meta["truncated"])

	_, _, err = NewSnapshotTool(d, 0).Execute(context.Background(), args("<max_length>0</max_length>"))
	assert.True(t, types.IsKind(err, types.ErrKindAgentProtocol))
}
