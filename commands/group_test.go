package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/testutil"
)

func TestGroupCreateAndList(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)

	var out bytes.Buffer
	groupCreateCmd.SetOut(&out)
	groupCreateCmd.SetContext(context.Background())
	require.NoError(t, groupCreateCmd.Flags().Set("title", "Cats"))
	require.NoError(t, groupCreateCmd.Flags().Set("slug", "cats"))
	require.NoError(t, groupCreateCmd.Flags().Set("description", "<b>all</b> about cats<script>x</script>"))
	require.NoError(t, createGroup(groupCreateCmd, db))
	assert.Contains(t, out.String(), "/group/cats/")

	var g models.Group
	require.NoError(t, db.Where("slug = ?", "cats").First(&g).Error)
	assert.NotContains(t, g.Description, "<script>")

	// duplicate slugs are refused
	assert.Error(t, createGroup(groupCreateCmd, db))

	out.Reset()
	groupListCmd.SetOut(&out)
	groupListCmd.SetContext(context.Background())
	require.NoError(t, listGroups(groupListCmd, db))
	assert.Contains(t, out.String(), "cats")
	assert.Contains(t, out.String(), "Cats")
}
