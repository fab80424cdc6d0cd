package dbexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apitest-engine/apitestd/entity"
)

func TestSplitStatementsDropsBlanksAndTrims(t *testing.T) {
	stmts := splitStatements("  select 1;  ; update t set x=1 ;")
	require.Equal(t, []string{"select 1", "update t set x=1"}, stmts)
}

func TestClassify(t *testing.T) {
	require.Equal(t, StmtSelect, classify("select * from t"))
	require.Equal(t, StmtSelect, classify("WITH cte AS (select 1) select * from cte"))
	require.Equal(t, StmtDML, classify("insert into t values (1)"))
	require.Equal(t, StmtDML, classify("UPDATE t set x=1"))
	require.Equal(t, StmtDDL, classify("create table t (id int)"))
	require.Equal(t, StmtDDL, classify(""))
}

func TestStringify(t *testing.T) {
	require.Nil(t, stringify(nil))
	require.Equal(t, "42", stringify(42))
	require.Equal(t, "true", stringify(true))
}

func TestErrString(t *testing.T) {
	require.Equal(t, "", errString(nil))
	require.Equal(t, "boom", errString(errors.New("boom")))
}

func TestConnCacheCachesResolveErrors(t *testing.T) {
	calls := 0
	cache := NewConnCache(func(ctx context.Context, dbID int64) (entity.DatabaseConfig, error) {
		calls++
		return entity.DatabaseConfig{}, errors.New("no such db")
	})

	_, err1 := cache.Get(context.Background(), 1)
	require.Error(t, err1)
	_, err2 := cache.Get(context.Background(), 1)
	require.Error(t, err2)
	require.Equal(t, 1, calls)
}

func TestConnCacheCloseOnEmptyCacheIsNoop(t *testing.T) {
	cache := NewConnCache(func(ctx context.Context, dbID int64) (entity.DatabaseConfig, error) {
		return entity.DatabaseConfig{}, errors.New("unused")
	})
	cache.Close(context.Background())
}
