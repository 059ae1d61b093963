package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/taskboard/taskboard-server/internal/search"
)

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func spanAttrs(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestBoardService_Spans(t *testing.T) {
	tp, exporter := setupTestTracer(t)
	_, s := setupBoardTest(t, BoardServiceConfig{})
	svc := NewBoardService(s, nil, BoardServiceConfig{TracerProvider: tp}, nil)

	board := createBoard(t, svc)
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}
	_, err := svc.AddCard(context.Background(), ref, board.Lists[0].ID, AddCardRequest{Title: "Traced"})
	require.NoError(t, err)
	_, err = svc.GetBoard(context.Background(), Ref{BoardID: board.ID, UserID: "user-bob"})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "BoardService.CreateBoard", spans[0].Name)
	assert.Equal(t, board.ID, spanAttrs(spans[0])["board.id"].AsString())

	addCard := spans[1]
	assert.Equal(t, "BoardService.AddCard", addCard.Name)
	assert.Equal(t, codes.Ok, addCard.Status.Code)
	attrs := spanAttrs(addCard)
	assert.Equal(t, board.Lists[0].ID, attrs["list.id"].AsString())
	assert.Equal(t, int64(1), attrs["board.save_attempts"].AsInt64())
	assert.Equal(t, board.Version+1, attrs["board.version"].AsInt64())
	assert.Equal(t, TracerName, addCard.InstrumentationScope.Name)

	denied := spans[2]
	assert.Equal(t, codes.Error, denied.Status.Code)
	assert.Equal(t, "Access denied", denied.Status.Description)
	require.NotEmpty(t, denied.Events)
	assert.Equal(t, "exception", denied.Events[0].Name)
}

func TestBoardService_SearchCards_Index(t *testing.T) {
	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	_, s := setupBoardTest(t, BoardServiceConfig{})
	svc := NewBoardService(s, index, BoardServiceConfig{}, nil)
	board := createBoard(t, svc)
	ctx := context.Background()
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}
	listID := board.Lists[0].ID
	board = addCards(t, svc, ref, listID, "Revisar diseño", "Comprar café", "Deploy")

	matches, err := svc.SearchCards(ctx, ref, CardQuery{Text: "diseno"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Revisar diseño", matches[0].Card.Title)
	assert.Equal(t, listID, matches[0].ListID)

	// Deleted cards leave the index with the next save.
	_, err = svc.DeleteCard(ctx, ref, listID, matches[0].Card.ID)
	require.NoError(t, err)
	matches, err = svc.SearchCards(ctx, ref, CardQuery{Text: "diseno"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, svc.DeleteBoard(ctx, ref))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}
