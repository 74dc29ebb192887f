package requisition_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequisitionRepo_LinesQuery(t *testing.T) {
	sql, args, err := NewRequisitionRepo(nil).linesQuery(12).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT l.material_id, COALESCE(m.erp_item_code, '') AS erp_item_code, l.qty, COALESCE(l.unidade, '') AS unidade "+
			"FROM pcp.requisition_line l LEFT JOIN pcp.material m ON m.material_id = l.material_id "+
			"WHERE l.requisition_id = $1 ORDER BY l.material_id",
		sql)
	assert.Equal(t, []any{int64(12)}, args)
}
