package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"studyarchive/internal/apperr"
	"studyarchive/internal/db"
	"studyarchive/internal/models"
	"studyarchive/internal/rbac"
	"studyarchive/internal/storage"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

type docFixture struct {
	docs     *DocumentService
	comments *CommentService
	objects  *storage.Memory
}

func newDocFixture(t *testing.T) (*docFixture, func(name, role string) *rbac.Identity) {
	t.Helper()
	gdb := newDB(t)
	objects := storage.NewMemory()
	cstore := db.NewCommentStore(gdb)
	dstore := db.NewDocumentStore(gdb)
	f := &docFixture{
		docs:     NewDocumentService(dstore, cstore, objects, nil, nil, 1<<20),
		comments: NewCommentService(cstore, dstore, WithReadRetry(ReadRetry{})),
		objects:  objects,
	}
	return f, func(name, role string) *rbac.Identity { return register(t, gdb, name, role) }
}

func upload(title string, body string) UploadInput {
	return UploadInput{Title: title, FileName: strings.ToLower(title) + ".pdf", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestUploadDocument(t *testing.T) {
	f, user := newDocFixture(t)
	ctx := context.Background()
	alice := user("alice", models.RoleUser)

	doc, err := f.docs.Upload(ctx, alice, upload(" Calculus ", samplePDF))
	require.NoError(t, err)
	assert.Equal(t, "Calculus", doc.Title)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(doc.ObjectKey, "documents/"))

	stored, ok := f.objects.Object(doc.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, samplePDF, string(stored), "sniffed bytes are written back")

	u, err := f.docs.DownloadURL(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "memory://"+doc.ObjectKey, u)
}

func TestUploadDocumentRejects(t *testing.T) {
	f, user := newDocFixture(t)
	ctx := context.Background()
	alice := user("alice", models.RoleUser)
	visitor := user("visitor", models.RolePublic)

	big := upload("Big", samplePDF)
	big.Size = 2 << 20

	cases := []struct {
		name string
		in   UploadInput
		want string
	}{
		{"not a pdf by content", upload("Fake", "hello, plain text"), "not a PDF"},
		{"not a pdf by name", UploadInput{Title: "x", FileName: "x.docx", Size: 10, Body: strings.NewReader(samplePDF)}, "only PDF"},
		{"missing title", upload("", samplePDF), "title is required"},
		{"too large", big, "larger than"},
		{"empty", UploadInput{Title: "x", FileName: "x.pdf", Body: bytes.NewReader(nil)}, "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.docs.Upload(ctx, alice, tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := f.docs.Upload(ctx, nil, upload("Anon", samplePDF))
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	_, err = f.docs.Upload(ctx, visitor, upload("Visitor", samplePDF))
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	assert.Zero(t, f.objects.Len())
}

func TestListAndSearchDocuments(t *testing.T) {
	f, user := newDocFixture(t)
	ctx := context.Background()
	alice := user("alice", models.RoleUser)

	calc, err := f.docs.Upload(ctx, alice, upload("Calculus", samplePDF))
	require.NoError(t, err)
	_, err = f.docs.Upload(ctx, alice, upload("Physics", samplePDF))
	require.NoError(t, err)

	_, err = f.comments.CreateComment(ctx, alice, CreateCommentInput{DocumentID: calc.ID, Content: "nice"})
	require.NoError(t, err)

	page, err := f.docs.List(ctx, nil, 0, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)

	found, err := f.docs.Search(ctx, nil, "CALC")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, calc.ID, found[0].ID)
	assert.Equal(t, 1, found[0].CommentCount)

	_, err = f.docs.Search(ctx, nil, "  ")
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))

	got, err := f.docs.Get(ctx, nil, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)
}

func TestUpdateAndDeleteDocument(t *testing.T) {
	f, user := newDocFixture(t)
	ctx := context.Background()
	alice := user("alice", models.RoleUser)
	bob := user("bob", models.RoleUser)
	admin := user("root", models.RoleAdmin)

	doc, err := f.docs.Upload(ctx, alice, upload("Draft", samplePDF))
	require.NoError(t, err)
	root, err := f.comments.CreateComment(ctx, bob, CreateCommentInput{DocumentID: doc.ID, Content: "q"})
	require.NoError(t, err)
	_, err = f.comments.CreateComment(ctx, alice, CreateCommentInput{DocumentID: doc.ID, Content: "a", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = f.docs.Update(ctx, bob, doc.ID, UpdateDocumentInput{Title: "Mine now"})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	updated, err := f.docs.Update(ctx, alice, doc.ID, UpdateDocumentInput{Title: "Final", Description: "chapter 1"})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)

	assert.Equal(t, apperr.Forbidden, apperr.KindOf(f.docs.Delete(ctx, bob, doc.ID)))
	require.NoError(t, f.docs.Delete(ctx, admin, doc.ID))

	_, err = f.docs.Get(ctx, nil, doc.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = f.comments.ListComments(ctx, nil, doc.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	assert.Eventually(t, func() bool { return f.objects.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestDeleteDocumentFailureKeepsComments(t *testing.T) {
	gdb := newDB(t)
	ctx := context.Background()
	objects := storage.NewMemory()
	cstore := db.NewCommentStore(gdb)
	dstore := db.NewDocumentStore(gdb)
	trees := newRecordingCache()
	docs := NewDocumentService(dstore, cstore, objects, nil, trees, 1<<20)
	comments := NewCommentService(cstore, dstore, WithReadRetry(ReadRetry{}))
	alice := register(t, gdb, "alice", models.RoleUser)

	doc, err := docs.Upload(ctx, alice, upload("Draft", samplePDF))
	require.NoError(t, err)
	_, err = comments.CreateComment(ctx, alice, CreateCommentInput{DocumentID: doc.ID, Content: "q"})
	require.NoError(t, err)

	// 连接在删除文档行时断开
	require.NoError(t, gdb.Callback().Delete().Before("gorm:delete").Register("test:conn_reset", func(tx *gorm.DB) {
		if tx.Statement.Table == "documents" {
			_ = tx.AddError(errStoreDown)
		}
	}))

	err = docs.Delete(ctx, alice, doc.ID)
	assert.Equal(t, apperr.StoreUnavailable, apperr.KindOf(err))

	forest, err := comments.ListComments(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Len(t, forest, 1)
	assert.Empty(t, trees.invalidated)
	assert.Equal(t, 1, objects.Len())
}
