package container

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/codec"
	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
	"github.com/dtroode/keybox/internal/testutil"
)

const (
	testPath       = "keybox.yml"
	testPassphrase = "i love ruby"
)

type fixture struct {
	source *testutil.CounterSource
	files  *testutil.MemoryFiles
	loader *Loader
}

func newFixture(t *testing.T, iterations int) *fixture {
	t.Helper()

	f := &fixture{
		source: testutil.NewCounterSource(1),
		files:  testutil.NewMemoryFiles(),
	}
	params := DefaultParams()
	params.Iterations = iterations
	params.Digest = algorithm.DigestSHA256

	loader, err := NewLoader(f.source, codec.NewYAML(), f.files, params)
	require.NoError(t, err)
	f.loader = loader
	return f
}

func (f *fixture) open(t *testing.T, passphrase string) *Container {
	t.Helper()

	c, err := f.loader.Open(passphrase, testPath)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

// rewrite edits one metadata field of the stored snapshot.
func (f *fixture) rewrite(t *testing.T, field string, edit func(record.Value) record.Value) {
	t.Helper()

	yc := codec.NewYAML()
	data, err := f.files.Read(testPath)
	require.NoError(t, err)
	snap, err := yc.UnmarshalContainer(data)
	require.NoError(t, err)

	found := false
	for i := range snap.Fields {
		if snap.Fields[i].Name == field {
			snap.Fields[i].Value = edit(snap.Fields[i].Value)
			found = true
		}
	}
	require.True(t, found, field)

	out, err := yc.MarshalContainer(snap)
	require.NoError(t, err)
	f.files.Put(testPath, out)
}

func ids(entries []entry.Entry) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID())
	}
	return out
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		name   string
		params func(p *Params)
	}{
		{name: "unknown cipher", params: func(p *Params) { p.Cipher = "rot13" }},
		{name: "unknown digest", params: func(p *Params) { p.Digest = "md4" }},
		{name: "zero iterations", params: func(p *Params) { p.Iterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.params(&p)

			_, err := NewLoader(testutil.NewCounterSource(0), codec.NewYAML(), testutil.NewMemoryFiles(), p)
			var cerr *model.ConfigurationError
			assert.ErrorAs(t, err, &cerr)
		})
	}

	t.Run("default digest", func(t *testing.T) {
		l, err := NewLoader(testutil.NewCounterSource(0), codec.NewYAML(), testutil.NewMemoryFiles(), DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, algorithm.DigestSHA256, l.Params().Digest)
	})
}

func TestOpen_Fresh(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, testPath, c.Path())
	assert.NotEqual(t, uuid.Nil, c.ID())
	assert.Zero(t, c.Len())
	assert.True(t, c.Modified())
	assert.False(t, f.files.Has(testPath))

	meta := map[string]record.Value{}
	for _, fl := range c.Metadata().Fields {
		meta[fl.Name] = fl.Value
	}
	salt, _ := meta[FieldKeyDigestSalt].Bytes()
	recordSalt, _ := meta[FieldRecordDigestSalt].Bytes()
	iv, _ := meta[FieldRecordInitVector].Bytes()
	data, _ := meta[FieldRecordData].Bytes()
	iterations, _ := meta[FieldKeyCalcIterations].Int()

	assert.Len(t, salt, 32)
	assert.Len(t, recordSalt, 32)
	assert.Len(t, iv, 16)
	assert.NotEqual(t, salt, recordSalt)
	assert.Empty(t, data)
	assert.Equal(t, "", meta[FieldRecordDigest].String())
	assert.EqualValues(t, 4, iterations)
	assert.Equal(t, "aes256", meta[FieldRecordCipherAlgorithm].String())
	assert.Equal(t, "sha256", meta[FieldKeyDigestAlgorithm].String())

	key := algorithm.DeriveKey(algorithm.DigestSHA256, salt, testPassphrase, 4)
	assert.Equal(t, algorithm.DigestSHA256.HexSum(key), meta[FieldKeyDigest].String())
}

func TestOpen_FreshWeakPassphrase(t *testing.T) {
	f := newFixture(t, 4)

	c, err := f.loader.Open("abc", testPath)
	assert.Nil(t, c)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "passphrase", verr.Field)
	assert.Zero(t, f.source.Calls)
}

func TestOpen_RandomSourceFailure(t *testing.T) {
	f := newFixture(t, 4)
	f.source.Err = errors.New("device gone")

	c, err := f.loader.Open(testPassphrase, testPath)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, f.source.Err)
}

func TestSaveAndReopen(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)

	host := entry.NewHost("db", "db.example.com", "root", "s3cret")
	account := entry.NewAccount("mail", "me")
	require.NoError(t, c.Add(host))
	require.NoError(t, c.Add(account))
	require.NoError(t, c.Save())
	assert.False(t, c.Modified())
	assert.Equal(t, 1, f.files.Writes)

	reopened := f.open(t, testPassphrase)
	assert.Equal(t, c.ID(), reopened.ID())
	assert.Equal(t, ids(c.Entries()), ids(reopened.Entries()))
	assert.False(t, reopened.Modified())

	got, ok := reopened.Get(host.ID())
	require.True(t, ok)
	assert.Equal(t, entry.KindHost, got.Kind())
	assert.Equal(t, "s3cret", got.Value(entry.FieldPassword))
}

func TestSave_EmptyCollection(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Save())

	reopened := f.open(t, testPassphrase)
	assert.Zero(t, reopened.Len())
}

func TestOpen_WrongPassphrase(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewAccount("mail", "me")))
	require.NoError(t, c.Save())

	reopened, err := f.loader.Open("i love perl", testPath)
	assert.Nil(t, reopened)
	assert.ErrorIs(t, err, model.ErrWrongPassphrase)
	assert.NotErrorIs(t, err, model.ErrIntegrityMismatch)
}

func TestOpen_TamperedRecordDigest(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewAccount("mail", "me")))
	require.NoError(t, c.Save())

	f.rewrite(t, FieldRecordDigest, func(v record.Value) record.Value {
		b := []byte(v.String())
		if b[0] == '0' {
			b[0] = '1'
		} else {
			b[0] = '0'
		}
		return record.StringValue(string(b))
	})

	reopened, err := f.loader.Open(testPassphrase, testPath)
	assert.Nil(t, reopened)
	assert.ErrorIs(t, err, model.ErrIntegrityMismatch)
	assert.NotErrorIs(t, err, model.ErrWrongPassphrase)
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	tests := []struct {
		name string
		edit func([]byte) []byte
	}{
		{
			name: "flipped first byte",
			edit: func(b []byte) []byte {
				b[0] ^= 0xff
				return b
			},
		},
		{
			name: "truncated",
			edit: func(b []byte) []byte { return b[:len(b)-3] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 4)
			c := f.open(t, testPassphrase)
			require.NoError(t, c.Add(entry.NewHost("db", "db.example.com", "root", "s3cret")))
			require.NoError(t, c.Save())

			f.rewrite(t, FieldRecordData, func(v record.Value) record.Value {
				b, ok := v.Bytes()
				require.True(t, ok)
				return record.BytesValue(tt.edit(b))
			})

			reopened, err := f.loader.Open(testPassphrase, testPath)
			assert.Nil(t, reopened)
			assert.ErrorIs(t, err, model.ErrIntegrityMismatch)
		})
	}
}

func TestOpen_StrippedCiphertext(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewHost("db", "db.example.com", "root", "s3cret")))
	require.NoError(t, c.Add(entry.NewAccount("mail", "me")))
	require.NoError(t, c.Save())

	f.rewrite(t, FieldRecordData, func(record.Value) record.Value { return record.BytesValue(nil) })
	f.rewrite(t, FieldRecordDigest, func(record.Value) record.Value { return record.StringValue("") })

	reopened, err := f.loader.Open(testPassphrase, testPath)
	assert.Nil(t, reopened)
	assert.ErrorIs(t, err, model.ErrIntegrityMismatch)
	assert.ErrorIs(t, err, algorithm.ErrMalformedCiphertext)
}

func TestOpen_UppercaseDigests(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	mail := entry.NewAccount("mail", "me")
	require.NoError(t, c.Add(mail))
	require.NoError(t, c.Save())

	upper := func(v record.Value) record.Value { return record.StringValue(strings.ToUpper(v.String())) }
	f.rewrite(t, FieldKeyDigest, upper)
	f.rewrite(t, FieldRecordDigest, upper)

	reopened := f.open(t, testPassphrase)
	assert.Equal(t, []uuid.UUID{mail.ID()}, ids(reopened.Entries()))

	_, err := f.loader.Open("i love perl", testPath)
	assert.ErrorIs(t, err, model.ErrWrongPassphrase)
}

func TestOpen_UnknownAlgorithm(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{name: "cipher", field: FieldRecordCipherAlgorithm},
		{name: "key digest", field: FieldKeyDigestAlgorithm},
		{name: "record digest", field: FieldRecordDigestAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 4)
			c := f.open(t, testPassphrase)
			require.NoError(t, c.Save())

			f.rewrite(t, tt.field, func(record.Value) record.Value {
				return record.StringValue("des")
			})

			reopened, err := f.loader.Open(testPassphrase, testPath)
			assert.Nil(t, reopened)
			var cerr *model.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "des", cerr.Value)
		})
	}
}

func TestOpen_MalformedSnapshot(t *testing.T) {
	f := newFixture(t, 4)
	f.files.Put(testPath, []byte("format: something else\n"))

	c, err := f.loader.Open(testPassphrase, testPath)
	assert.Nil(t, c)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOpen_KeepsStoredIterations(t *testing.T) {
	f := newFixture(t, 3)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Save())

	params := DefaultParams()
	params.Iterations = 9
	loader, err := NewLoader(f.source, codec.NewYAML(), f.files, params)
	require.NoError(t, err)

	reopened, err := loader.Open(testPassphrase, testPath)
	require.NoError(t, err)
	require.NoError(t, reopened.SetPassphrase("a new passphrase"))
	require.NoError(t, reopened.Save())

	for _, fl := range reopened.Metadata().Fields {
		if fl.Name == FieldKeyCalcIterations {
			n, _ := fl.Value.Int()
			assert.EqualValues(t, 3, n)
		}
	}
}

func TestSetPassphrase_Rotation(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewHost("db", "db.example.com", "root", "s3cret")))
	require.NoError(t, c.Add(entry.NewURL("the times", "http://www.nytimes.com", "rubyhacker")))
	require.NoError(t, c.Save())
	before := ids(c.Entries())

	require.NoError(t, c.SetPassphrase("i love go"))
	assert.Equal(t, StateReady, c.State())
	assert.True(t, c.Modified())

	// not saved yet: the stored snapshot still opens with the old passphrase
	stale := f.open(t, testPassphrase)
	assert.Equal(t, before, ids(stale.Entries()))

	require.NoError(t, c.Save())

	reopened := f.open(t, "i love go")
	assert.Equal(t, before, ids(reopened.Entries()))

	_, err := f.loader.Open(testPassphrase, testPath)
	assert.ErrorIs(t, err, model.ErrWrongPassphrase)
}

func TestSetPassphrase_RotatesMaterial(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)

	fields := func() map[string]string {
		out := map[string]string{}
		for _, fl := range c.Metadata().Fields {
			out[fl.Name] = fl.Value.String()
		}
		return out
	}
	before := fields()
	require.NoError(t, c.SetPassphrase("i love go"))
	after := fields()

	for _, name := range []string{FieldKeyDigestSalt, FieldKeyDigest, FieldRecordDigestSalt, FieldRecordInitVector} {
		assert.NotEqual(t, before[name], after[name], name)
	}
	assert.Equal(t, before[FieldKeyCalcIterations], after[FieldKeyCalcIterations])
}

func TestSetPassphrase_TooShort(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewAccount("mail", "me")))
	require.NoError(t, c.Save())

	stored, err := f.files.Read(testPath)
	require.NoError(t, err)
	before := c.Metadata()
	calls := f.source.Calls

	err = c.SetPassphrase("")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "passphrase", verr.Field)

	assert.Equal(t, calls, f.source.Calls)
	assert.False(t, c.Modified())
	after := c.Metadata()
	require.Len(t, after.Fields, len(before.Fields))
	for i := range before.Fields {
		assert.True(t, before.Fields[i].Value.Equal(after.Fields[i].Value), before.Fields[i].Name)
	}

	current, err := f.files.Read(testPath)
	require.NoError(t, err)
	assert.Equal(t, stored, current)

	reopened := f.open(t, testPassphrase)
	assert.Equal(t, 1, reopened.Len())
}

func TestSetPassphrase_ReinjectsDerivedPasswords(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	site := entry.NewURL("the times", "http://www.nytimes.com", "rubyhacker")
	require.NoError(t, c.Add(site))
	assert.Equal(t, "2f85a2e2f", site.Password())

	require.NoError(t, c.SetPassphrase("i love go"))
	assert.NotEqual(t, "2f85a2e2f", site.Password())
	assert.Len(t, site.Password(), 9)
}

func TestScenario_NYTimes(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Add(entry.NewURL("the times", "http://www.nytimes.com", "rubyhacker")))
	require.NoError(t, c.Save())

	reopened := f.open(t, testPassphrase)
	require.Equal(t, 1, reopened.Len())

	found, err := reopened.Find("times")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2f85a2e2f", found[0].Value(entry.FieldPassword))

	found, err = reopened.Find("nothing")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFind(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)

	db := entry.NewHost("Production DB", "db.example.com", "root", "Hunter2")
	web := entry.NewHost("web", "www.example.com", "deploy", "correct horse")
	mail := entry.NewAccount("Mail", "me@example.com")
	for _, e := range []entry.Entry{db, web, mail} {
		require.NoError(t, c.Add(e))
	}

	tests := []struct {
		name   string
		query  string
		fields []string
		want   []entry.Entry
	}{
		{name: "case insensitive", query: "production", want: []entry.Entry{db}},
		{name: "collection order", query: "EXAMPLE.COM", want: []entry.Entry{db, web, mail}},
		{name: "password excluded by default", query: "hunter2", want: nil},
		{name: "password included explicitly", query: "hunter2", fields: []string{entry.FieldPassword}, want: []entry.Entry{db}},
		{name: "restricted fields", query: "example", fields: []string{entry.FieldHostname}, want: []entry.Entry{db, web}},
		{name: "no match", query: "nothing", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Find(tt.query, tt.fields...)
			require.NoError(t, err)
			assert.Equal(t, ids(tt.want), ids(got))
		})
	}
}

func TestFindPattern(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	db := entry.NewHost("db-01", "db01.example.com", "root", "pw")
	web := entry.NewHost("web-01", "web01.example.com", "root", "pw")
	require.NoError(t, c.Add(db))
	require.NoError(t, c.Add(web))

	got, err := c.FindPattern(`^DB-\d+$`)
	require.NoError(t, err)
	assert.Equal(t, ids([]entry.Entry{db}), ids(got))

	_, err = c.FindPattern("(")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAddDelete(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.Save())
	assert.False(t, c.Modified())

	mail := entry.NewAccount("mail", "me")
	require.NoError(t, c.Add(mail))
	assert.True(t, c.Modified())

	var verr *model.ValidationError
	assert.ErrorAs(t, c.Add(mail), &verr)
	assert.ErrorAs(t, c.Add(nil), &verr)
	assert.Equal(t, "entry", verr.Field)
	assert.Equal(t, 1, c.Len())

	removed, err := c.Delete(nil)
	assert.ErrorAs(t, err, &verr)
	assert.False(t, removed)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Save())
	assert.False(t, c.Modified())

	removed, err = c.Delete(mail)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, c.Modified())
	assert.Zero(t, c.Len())

	removed, err = c.DeleteByID(mail.ID())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestModified_EntryField(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	mail := entry.NewAccount("mail", "me")
	require.NoError(t, c.Add(mail))
	require.NoError(t, c.Save())

	reopened := f.open(t, testPassphrase)
	assert.False(t, reopened.Modified())

	got, ok := reopened.Get(mail.ID())
	require.True(t, ok)
	require.NoError(t, got.Attributes().SetString(entry.FieldUsername, "you"))
	assert.True(t, reopened.Modified())

	require.NoError(t, reopened.Save())
	assert.False(t, reopened.Modified())
	assert.False(t, got.Dirty())
}

func TestSaveAs_KeepsOrigin(t *testing.T) {
	f := newFixture(t, 4)
	c := f.open(t, testPassphrase)
	require.NoError(t, c.SaveAs("copy.yml"))

	assert.Equal(t, testPath, c.Path())
	assert.True(t, f.files.Has("copy.yml"))
	assert.False(t, f.files.Has(testPath))

	copied, err := f.loader.Open(testPassphrase, "copy.yml")
	require.NoError(t, err)
	assert.Equal(t, c.ID(), copied.ID())
}

func TestUnusableContainer(t *testing.T) {
	var c Container

	assert.ErrorIs(t, c.Add(entry.NewAccount("a", "b")), model.ErrUnusable)
	_, err := c.DeleteByID(uuid.New())
	assert.ErrorIs(t, err, model.ErrUnusable)
	_, err = c.Find("x")
	assert.ErrorIs(t, err, model.ErrUnusable)
	assert.ErrorIs(t, c.Save(), model.ErrUnusable)
	assert.ErrorIs(t, c.SetPassphrase("long enough"), model.ErrUnusable)
	assert.False(t, c.Modified())
	assert.Equal(t, uuid.Nil, c.ID())
	assert.Equal(t, "uninitialized", c.State().String())
}
