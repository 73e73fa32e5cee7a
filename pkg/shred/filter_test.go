package shred_test

import (
	"testing"

	"github.com/mvilim/bamboo/pkg/shred"
	"github.com/stretchr/testify/require"
)

func TestColumnFilterRejectsBothExplicit(t *testing.T) {
	_, err := shred.NewColumnFilter(true, true)
	require.Error(t, err)
	require.True(t, shred.IsKind(err, shred.ErrSchemaConflict))
}

func TestColumnFilterExcludeOnlyModeDefaultsIncluded(t *testing.T) {
	root, err := shred.NewColumnFilter(false, false)
	require.NoError(t, err)
	excludedChild, err := shred.NewColumnFilter(false, true)
	require.NoError(t, err)
	root.SetField("secret", excludedChild)

	require.True(t, root.RootImplicitInclude(), "no explicit include anywhere means exclude-only mode")

	implicit := root.RootImplicitInclude()
	require.True(t, root.Included(implicit))
	require.False(t, root.Field("secret").Included(implicit))
	require.True(t, root.Field("other").Included(implicit), "unregistered field inherits implicit_include")
}

func TestColumnFilterAllowlistModeDefaultsExcluded(t *testing.T) {
	root, err := shred.NewColumnFilter(false, false)
	require.NoError(t, err)
	includedChild, err := shred.NewColumnFilter(true, false)
	require.NoError(t, err)
	root.SetField("wanted", includedChild)

	require.False(t, root.RootImplicitInclude(), "an explicit include anywhere means allowlist mode")

	implicit := root.RootImplicitInclude()
	require.True(t, root.Field("wanted").Included(implicit))
	require.False(t, root.Field("other").Included(implicit), "unregistered field defaults excluded in allowlist mode")
}

func TestColumnFilterNilFieldInheritsImplicit(t *testing.T) {
	var f *shred.ColumnFilter
	require.True(t, f.Included(true))
	require.False(t, f.Included(false))
	require.Nil(t, f.Field("anything"))
}

func TestBuildColumnFilterEmptyMeansNoFilter(t *testing.T) {
	f, err := shred.BuildColumnFilter(nil)
	require.NoError(t, err)
	require.Nil(t, f)
}

func TestBuildColumnFilterDottedPaths(t *testing.T) {
	f, err := shred.BuildColumnFilter([]string{"name", "address.city"})
	require.NoError(t, err)
	require.NotNil(t, f)

	implicit := f.RootImplicitInclude()
	require.False(t, implicit, "an explicit include anywhere means allowlist mode")

	require.True(t, f.Field("name").Included(implicit))
	require.False(t, f.Field("other").Included(implicit))

	addrFilter := f.Field("address")
	require.NotNil(t, addrFilter)
	addrImplicit := addrFilter.Included(implicit)
	require.False(t, addrImplicit, "address itself was never explicitly included, only its city child")
	require.True(t, addrFilter.Field("city").Included(addrImplicit))
	require.False(t, addrFilter.Field("street").Included(addrImplicit))
}

func TestBuildColumnFilterRejectsEmptyPath(t *testing.T) {
	_, err := shred.BuildColumnFilter([]string{""})
	require.Error(t, err)
	require.True(t, shred.IsKind(err, shred.ErrSchemaConflict))
}
