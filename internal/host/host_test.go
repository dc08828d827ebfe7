package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parle/internal/assistant"
)

type fakeProcessor struct {
	mu     sync.Mutex
	texts  []string
	opened []string
	panics bool
}

func (f *fakeProcessor) Process(_ context.Context, raw string) assistant.Outcome {
	if f.panics {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, raw)
	if raw == "quitter" {
		return assistant.Stop
	}
	return assistant.Continue
}

func (f *fakeProcessor) OpenApp(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, name)
}

type fakeChat struct {
	mu    sync.Mutex
	posts []string
}

func (f *fakeChat) Post(kind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, kind+": "+text)
}

// blockingListener returns text once release is closed.
type blockingListener struct {
	release chan struct{}
	text    string
	err     error
}

func (b *blockingListener) Listen(context.Context) (string, error) {
	<-b.release
	return b.text, b.err
}

type fakeFiles struct {
	text string
	err  error
}

func (f fakeFiles) TranscribeFile(context.Context, string) (string, error) {
	return f.text, f.err
}

func released(text string) *blockingListener {
	l := &blockingListener{release: make(chan struct{}), text: text}
	close(l.release)
	return l
}

func TestSubmit(t *testing.T) {
	proc := &fakeProcessor{}
	chat := &fakeChat{}
	h := New(context.Background(), Config{Processor: proc, Listener: released(""), Chat: chat})

	h.Submit("  Ouvre Firefox ")
	h.Submit("   ")
	h.Wait()

	assert.Equal(t, []string{"ouvre firefox"}, proc.texts)
	assert.Equal(t, []string{"user: Ouvre Firefox"}, chat.posts)

	select {
	case <-h.Done():
		t.Fatal("host stopped without a quit command")
	default:
	}
}

func TestSubmit_StopClosesDone(t *testing.T) {
	h := New(context.Background(), Config{Processor: &fakeProcessor{}, Listener: released("")})

	h.Submit("Quitter")
	h.Submit("quitter")
	h.Wait()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}

func TestListen_IsExclusive(t *testing.T) {
	proc := &fakeProcessor{}
	listener := &blockingListener{release: make(chan struct{}), text: "cherche des chats"}
	h := New(context.Background(), Config{Processor: proc, Listener: listener})

	require.NoError(t, h.Listen())
	assert.ErrorIs(t, h.Listen(), ErrBusy)

	close(listener.release)
	h.Wait()

	assert.Equal(t, []string{"cherche des chats"}, proc.texts)
	require.NoError(t, h.Listen())
	h.Wait()
	assert.Len(t, proc.texts, 2)
}

func TestListen_EmptyIsIgnored(t *testing.T) {
	proc := &fakeProcessor{}
	h := New(context.Background(), Config{Processor: proc, Listener: released("")})

	require.NoError(t, h.Listen())
	h.Wait()
	assert.Empty(t, proc.texts)
}

func TestListen_ErrorIsReported(t *testing.T) {
	chat := &fakeChat{}
	listener := released("")
	listener.err = errors.New("mic unplugged")
	h := New(context.Background(), Config{Processor: &fakeProcessor{}, Listener: listener, Chat: chat})

	require.NoError(t, h.Listen())
	h.Wait()

	assert.Equal(t, []string{"error: Erreur: listen: mic unplugged"}, chat.posts)
	require.NoError(t, h.Listen(), "listening flag must be released after a failure")
	h.Wait()
}

func TestPanicIsRecovered(t *testing.T) {
	chat := &fakeChat{}
	proc := &fakeProcessor{panics: true}
	h := New(context.Background(), Config{Processor: proc, Listener: released("ouvre gedit"), Chat: chat})

	require.NoError(t, h.Listen())
	h.Wait()

	assert.Equal(t, []string{"user: ouvre gedit", "error: Erreur: boom"}, chat.posts)
	assert.NoError(t, h.Listen())
	h.Wait()
}

func TestOpen(t *testing.T) {
	proc := &fakeProcessor{}
	h := New(context.Background(), Config{Processor: proc, Listener: released("")})

	h.Open("vs code")
	h.Wait()
	assert.Equal(t, []string{"vs code"}, proc.opened)
}

func TestTranscribeFile(t *testing.T) {
	proc := &fakeProcessor{}
	h := New(context.Background(), Config{Processor: proc, Listener: released(""), Files: fakeFiles{text: " Joue Adriano "}})

	require.NoError(t, h.TranscribeFile("/tmp/note.ogg"))
	h.Wait()
	assert.Equal(t, []string{"joue adriano"}, proc.texts)

	h = New(context.Background(), Config{Processor: proc, Listener: released("")})
	assert.ErrorIs(t, h.TranscribeFile("/tmp/note.ogg"), ErrNoTranscriber)
}
