package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
)

type account struct {
	ID    int64
	Owner string
}

type ledger struct {
	Day    string
	Seq    int64
	Amount float64
}

var (
	accountID = catalog.NewField[account, int64]("id", catalog.FieldInt64,
		func(a *account) int64 { return a.ID }, func(a *account, v int64) { a.ID = v })
	accountOwner = catalog.NewField[account, string]("owner", catalog.FieldText,
		func(a *account) string { return a.Owner }, func(a *account, v string) { a.Owner = v })

	ledgerDay = catalog.NewField[ledger, string]("day", catalog.FieldText,
		func(l *ledger) string { return l.Day }, func(l *ledger, v string) { l.Day = v })
	ledgerSeq = catalog.NewField[ledger, int64]("seq", catalog.FieldInt64,
		func(l *ledger) int64 { return l.Seq }, func(l *ledger, v int64) { l.Seq = v })
	ledgerAmount = catalog.NewField[ledger, float64]("amount", catalog.FieldFloat64,
		func(l *ledger) float64 { return l.Amount }, func(l *ledger, v float64) { l.Amount = v })
)

func accountTable() *catalog.TableDescriptor {
	return catalog.MakeTable("accounts", (*account)(nil), []catalog.ColumnDescriptor{
		catalog.Col(accountID, false, catalog.PrimaryKey(catalog.AutoIncrement())),
		catalog.Col(accountOwner, false, catalog.Unique()),
	})
}

func ledgerTable() *catalog.TableDescriptor {
	return catalog.MakeTable("ledger", (*ledger)(nil), []catalog.ColumnDescriptor{
		catalog.Col(ledgerDay, false),
		catalog.Col(ledgerSeq, false),
		catalog.Col(ledgerAmount, false, catalog.Default(0.0)),
	},
		catalog.WithCompositeKey("day", "seq"),
		catalog.WithoutRowid(),
		catalog.WithIndex("idx_ledger_amount", false, "amount"),
	)
}

func TestCatalogLookup(t *testing.T) {
	cat := catalog.New()
	cat.Register(accountTable())
	cat.Register(ledgerTable())

	t.Run("get table by record type", func(t *testing.T) {
		tab, err := catalog.GetTable[account](cat)
		require.NoError(t, err)
		require.Equal(t, "accounts", tab.Name)
	})

	t.Run("find table name", func(t *testing.T) {
		name, err := catalog.FindTableName[ledger](cat)
		require.NoError(t, err)
		require.Equal(t, "ledger", name)
	})

	t.Run("unmapped type", func(t *testing.T) {
		type stranger struct{ X int }
		_, err := catalog.GetTable[stranger](cat)
		var tnm *errs.TypeNotMapped
		require.True(t, errors.As(err, &tnm))
	})

	t.Run("resolve column by accessor", func(t *testing.T) {
		tab, col, err := cat.ResolveColumn(accountOwner)
		require.NoError(t, err)
		require.Equal(t, "accounts", tab.Name)
		require.Equal(t, "owner", col.Name)
	})

	t.Run("unknown accessor", func(t *testing.T) {
		stray := catalog.NewField[account, int64]("stray", catalog.FieldInt64,
			func(a *account) int64 { return 0 }, nil)
		_, _, err := cat.ResolveColumn(stray)
		var cnf *errs.ColumnNotFound
		require.True(t, errors.As(err, &cnf))
	})

	t.Run("table by name", func(t *testing.T) {
		tab, ok := cat.TableByName("accounts")
		require.True(t, ok)
		require.Equal(t, "accounts", tab.Name)
		_, ok = cat.TableByName("nothing")
		require.False(t, ok)
	})
}

func TestRegistrationOrder(t *testing.T) {
	cat := catalog.New()
	cat.Register(ledgerTable())
	cat.Register(accountTable())

	var names []string
	cat.ForEach(func(tab *catalog.TableDescriptor) { names = append(names, tab.Name) })
	require.Equal(t, []string{"ledger", "accounts"}, names)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	cat := catalog.New()
	cat.Register(accountTable())
	require.Panics(t, func() { cat.Register(accountTable()) })
}

func TestPrimaryKeyColumns(t *testing.T) {
	t.Run("single column constraint", func(t *testing.T) {
		require.Equal(t, []string{"id"}, accountTable().PrimaryKeyColumns())
	})

	t.Run("composite key wins", func(t *testing.T) {
		require.Equal(t, []string{"day", "seq"}, ledgerTable().PrimaryKeyColumns())
	})
}

func TestColumnDescriptor(t *testing.T) {
	tab := accountTable()

	t.Run("accessor round trip", func(t *testing.T) {
		col, ok := tab.ColumnByAccessor(accountID)
		require.True(t, ok)
		rec := account{}
		col.Set(&rec, int64(42))
		require.Equal(t, int64(42), rec.ID)
		require.Equal(t, int64(42), col.Get(&rec))
	})

	t.Run("primary key flags", func(t *testing.T) {
		col, _ := tab.Column("id")
		require.True(t, col.IsPrimaryKey())
		require.True(t, col.IsAutoIncrement())
		owner, _ := tab.Column("owner")
		require.False(t, owner.IsPrimaryKey())
	})

	t.Run("constraint lookup", func(t *testing.T) {
		lt := ledgerTable()
		amount, _ := lt.Column("amount")
		def, ok := catalog.HasConstraint[catalog.DefaultConstraint](amount.Constraints)
		require.True(t, ok)
		require.Equal(t, 0.0, def.Value)
	})
}
