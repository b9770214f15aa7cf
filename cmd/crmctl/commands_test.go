package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/crud"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entities/service"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/entity"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/schemacache"
	"github.com/Ruben-boon/CPM-crm-system-sub001/internal/store/memory"
)

func newSession(t *testing.T) *session {
	t.Helper()
	reg, err := entity.LoadRegistry("")
	require.NoError(t, err)
	crudSvc := crud.New(memory.New(), nil, nil)
	cache := schemacache.New(nil, time.Minute, service.IntrospectLoader(crudSvc), nil)
	return &session{svc: service.New(reg, crudSvc, cache, service.Options{PhoneRegion: "NL"}, nil)}
}

func run(t *testing.T, sess *session, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context, bool) (*session, error) { return sess, nil })
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func createContact(t *testing.T, sess *session) string {
	t.Helper()
	out, err := run(t, sess, "create", "contacts",
		"--set", "general.firstName=Ann",
		"--set", "general.lastName=Smith",
		"--set", "general.phone=06 12345678")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "+31612345678", doc["general"].(map[string]any)["phone"])
	return doc["_id"].(string)
}

func lastName(t *testing.T, sess *session, id string) string {
	t.Helper()
	out, err := run(t, sess, "get", "contacts", id)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	return doc["general"].(map[string]any)["lastName"].(string)
}

func TestEntitiesListsRegistry(t *testing.T) {
	out, err := run(t, newSession(t), "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "contacts")
	assert.Contains(t, out, "introspected")
}

func TestCreateSearchDelete(t *testing.T) {
	sess := newSession(t)
	id := createContact(t, sess)

	out, err := run(t, sess, "search", "contacts", "--field", "lastName", "--term", "smi")
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0]["_id"])

	out, err = run(t, sess, "delete", "contacts", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted contacts/"+id)

	_, err = run(t, sess, "get", "contacts", id)
	assert.Error(t, err)
}

func TestCreateRejectsBadAssignment(t *testing.T) {
	_, err := run(t, newSession(t), "create", "contacts", "--set", "nonsense")
	assert.ErrorContains(t, err, "want path=value")
}

func TestEditDecisions(t *testing.T) {
	sess := newSession(t)
	id := createContact(t, sess)

	out, err := run(t, sess, "edit", "contacts", id, "--set", "general.lastName=Jones", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `general.lastName: "Smith" -> "Jones"`)
	assert.Contains(t, out, "1 unsaved change(s) kept")
	assert.Equal(t, "Smith", lastName(t, sess, id))

	out, err = run(t, sess, "edit", "contacts", id, "--set", "general.lastName=Jones", "--discard")
	require.NoError(t, err)
	assert.Contains(t, out, "1 change(s) discarded")
	assert.Equal(t, "Smith", lastName(t, sess, id))

	out, err = run(t, sess, "edit", "contacts", id, "--set", "general.lastName=Jones")
	require.NoError(t, err)
	assert.Contains(t, out, "1 change(s) saved")
	assert.Equal(t, "Jones", lastName(t, sess, id))

	out, err = run(t, sess, "edit", "contacts", id, "--set", "general.lastName=Jones")
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")

	_, err = run(t, sess, "edit", "contacts", id, "--set", "general.shoeSize=44")
	assert.ErrorContains(t, err, "general.shoeSize")
}

func TestFieldsRefresh(t *testing.T) {
	sess := newSession(t)
	ctx := context.Background()

	out, err := run(t, sess, "fields", "stays")
	require.NoError(t, err)
	assert.NotContains(t, out, "roomNumber")

	_, err = sess.svc.Create(ctx, "stays", nil)
	assert.Error(t, err)

	_, err = run(t, sess, "create", "stays", "--set", "hotelId=h1", "--set", "roomNumber=12")
	require.NoError(t, err)

	out, err = run(t, sess, "fields", "stays", "--refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "roomNumber")

	_, err = run(t, sess, "fields", "invoices", "--refresh")
	assert.Error(t, err)
}
