package contracts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/stretchr/testify/require"
)

func TestReadMissingFiles(t *testing.T) {
	_fs := fstest.MapFS{}

	// Missing NEF
	_, err := Read(_fs, BankDir)
	require.Error(t, err)

	// Missing manifest.
	_fs[BankDir+"/"+nefName] = &fstest.MapFile{}
	_, err = Read(_fs, BankDir)
	require.Error(t, err)
}

func TestReadInvalidFormat(t *testing.T) {
	var (
		_fs          = fstest.MapFS{}
		nefPath      = BankDir + "/" + nefName
		manifestPath = BankDir + "/" + manifestName
	)

	validNEF, bNEF := anyValidNEF(t)
	validManifest, bManifest := anyValidManifest(t, "Bank")

	_fs[nefPath] = &fstest.MapFile{Data: bNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: bManifest}

	c, err := Read(_fs, BankDir)
	require.NoError(t, err)
	require.Equal(t, validNEF.Script, c.NEF.Script)
	require.Equal(t, validManifest.Name, c.Manifest.Name)

	_fs[nefPath] = &fstest.MapFile{Data: []byte("not a NEF")}
	_fs[manifestPath] = &fstest.MapFile{Data: bManifest}

	_, err = Read(_fs, BankDir)
	require.ErrorIs(t, err, errInvalidNEF)

	_fs[nefPath] = &fstest.MapFile{Data: bNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: []byte("not a manifest")}

	_, err = Read(_fs, BankDir)
	require.ErrorIs(t, err, errInvalidManifest)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()

	_, bNEF := anyValidNEF(t)
	_, bManifest := anyValidManifest(t, "Bank")

	require.NoError(t, os.WriteFile(filepath.Join(dir, nefName), bNEF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), bManifest, 0o644))

	c, err := ReadDir(dir)
	require.NoError(t, err)
	require.Equal(t, "Bank", c.Manifest.Name)
}

func anyValidNEF(tb testing.TB) (nef.File, []byte) {
	script := make([]byte, 32)

	_nef, err := nef.NewFile(script)
	require.NoError(tb, err)

	bNEF, err := _nef.Bytes()
	require.NoError(tb, err)

	return *_nef, bNEF
}

func anyValidManifest(tb testing.TB, name string) (manifest.Manifest, []byte) {
	_manifest := manifest.NewManifest(name)

	jManifest, err := json.Marshal(_manifest)
	require.NoError(tb, err)

	return *_manifest, jManifest
}
