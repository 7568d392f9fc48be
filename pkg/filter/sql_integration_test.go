package filter

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/duckdb/duckdb-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Filter Integration with DuckDB", func() {
	var db *sql.DB

	BeforeEach(func() {
		connector, err := duckdb.NewConnector("", nil)
		Expect(err).ToNot(HaveOccurred())

		db = sql.OpenDB(connector)
		Expect(db.Ping()).To(Succeed())

		createSchema(db)
		insertTestData(db)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	queryUsers := func(filter string) ([]int, error) {
		res, err := Parse(filter)
		if err != nil {
			return nil, err
		}

		sink := NewSelectSink(sq.Select("id").From("users"))
		if err := (Compiler{}).Apply(res, sink); err != nil {
			return nil, err
		}
		sink.OrderBy("id", Asc, "")

		query, args, err := sink.ToSql()
		if err != nil {
			return nil, err
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		ids := []int{}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}

	Context("Conditions", func() {
		type testCase struct {
			filter string
			ids    []int
		}

		tests := []testCase{
			// ===== COMPARISONS =====
			{filter: "name.eq(Alice)", ids: []int{1}},
			{filter: "name.neq(Alice)", ids: []int{2, 3, 4, 5}},
			{filter: "age.gt(30)", ids: []int{3, 5}},
			{filter: "age.gte(30)", ids: []int{1, 3, 5}},
			{filter: "age.lt(18)", ids: []int{4}},
			{filter: "age.lte(25)", ids: []int{2, 4}},
			{filter: "age.between(25,35)", ids: []int{1, 2, 3}},
			{filter: "{age}::double.gt(29.5)", ids: []int{1, 3, 5}},
			{filter: `age.gt("company_id")`, ids: []int{1, 2, 3, 5}},

			// ===== PATTERNS AND SETS =====
			{filter: "name.like(*o*)", ids: []int{2, 3}},
			{filter: "name.ilike(*o*)", ids: []int{2, 3, 5}},
			{filter: "email.like(*@example.com)", ids: []int{1, 2, 5}},
			{filter: "status.in(active,pending)", ids: []int{1, 3, 4, 5}},
			{filter: "status.in[inactive]", ids: []int{2}},
			{filter: "name.eq(any,Alice,Bob)", ids: []int{1, 2}},
			{filter: "name.like(all,*a*,*l*)", ids: []int{3}},

			// ===== NULLS =====
			{filter: "email.is(null)", ids: []int{4}},
			{filter: "email.is()", ids: []int{4}},
			{filter: "email.is(not_null)", ids: []int{1, 2, 3, 5}},
			{filter: "company_id.isdistinct(1)", ids: []int{3, 4, 5}},

			// ===== LOGICAL =====
			{filter: "!status.eq(active)", ids: []int{2, 4}},
			{filter: "or(age.lt(18),age.gt(40))", ids: []int{4, 5}},
			{filter: "status.eq(active),(age.lt(31)|name.eq(Carol))", ids: []int{1, 3}},
			{filter: "not(status.eq(active),age.gt(40))", ids: []int{1, 2, 3, 4}},
			{filter: "and(status.eq(active),or(age.lt(31),age.gt(40)))", ids: []int{1, 5}},

			// ===== QUOTING =====
			{filter: "name.eq('O\\'Brien')", ids: []int{5}},
			{filter: "name.eq('\\'; DROP TABLE users; --')", ids: []int{}},
		}

		for _, test := range tests {
			test := test
			It("should filter: "+test.filter, func() {
				ids, err := queryUsers(test.filter)
				Expect(err).ToNot(HaveOccurred())
				Expect(ids).To(Equal(test.ids))
			})
		}

		It("should leave the table intact after a hostile value", func() {
			_, err := queryUsers("name.eq('\\'; DROP TABLE users; --')")
			Expect(err).ToNot(HaveOccurred())

			ids, err := queryUsers("")
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(HaveLen(5))
		})
	})

	Context("Directives", func() {
		It("should order and limit", func() {
			ids, err := queryUsers("status.eq(active),$.order(age.desc),$.limit(2)")
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]int{5, 3}))
		})

		It("should page", func() {
			ids, err := queryUsers("$.order(name.asc),$.limit(2),$.offset(1)")
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]int{2, 3}))
		})

		It("should place nulls", func() {
			ids, err := queryUsers("$.order(email.desc.nullsfirst)")
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]int{4, 5, 3, 2, 1}))

			ids, err = queryUsers("$.order(email.asc.nullslast)")
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]int{1, 2, 3, 5, 4}))
		})

		It("should group", func() {
			res, err := Parse("$.group(status),$.order(status)")
			Expect(err).ToNot(HaveOccurred())

			sink := NewSelectSink(sq.Select("status", "count(*)").From("users"))
			Expect(Compiler{}.Apply(res, sink)).To(Succeed())
			query, args, err := sink.ToSql()
			Expect(err).ToNot(HaveOccurred())

			rows, err := db.Query(query, args...)
			Expect(err).ToNot(HaveOccurred())
			defer rows.Close()

			counts := map[string]int{}
			for rows.Next() {
				var status string
				var n int
				Expect(rows.Scan(&status, &n)).To(Succeed())
				counts[status] = n
			}
			Expect(rows.Err()).ToNot(HaveOccurred())
			Expect(counts).To(Equal(map[string]int{"active": 3, "inactive": 1, "pending": 1}))
		})
	})

	Context("Embeds", func() {
		schema := mapSchema{
			tables: map[string]string{"users": "users", "companies": "companies"},
			relations: map[[2]string]Relation{
				{"users", "companies"}: {Column: "id", ParentColumn: "company_id"},
			},
		}

		type row struct {
			id      int
			company sql.NullString
		}

		queryEmbed := func(selectList, filter string) ([]row, error) {
			nodes, err := ParseSelect(selectList)
			if err != nil {
				return nil, err
			}
			res, err := Parse(filter)
			if err != nil {
				return nil, err
			}

			sink := NewSelectSink(sq.Select().From("users"))
			if err := (Resolver{Resource: "users", Table: "users", Schema: schema}).Resolve(nodes, sink); err != nil {
				return nil, err
			}
			if err := (Compiler{Qualifier: "users"}).Apply(res, sink); err != nil {
				return nil, err
			}
			sink.OrderBy("users.id", Asc, "")

			query, args, err := sink.ToSql()
			if err != nil {
				return nil, err
			}
			rows, err := db.Query(query, args...)
			if err != nil {
				return nil, err
			}
			defer rows.Close()

			out := []row{}
			for rows.Next() {
				var r row
				if err := rows.Scan(&r.id, &r.company); err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			return out, rows.Err()
		}

		It("should left join an embedded resource", func() {
			rows, err := queryEmbed("id,company:companies(name)", "status.eq(active)")
			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(Equal([]row{
				{id: 1, company: sql.NullString{String: "Acme", Valid: true}},
				{id: 3, company: sql.NullString{String: "Globex", Valid: true}},
				{id: 5, company: sql.NullString{String: "Globex", Valid: true}},
			}))
		})

		It("should keep rows without a match on a left join", func() {
			rows, err := queryEmbed("id,companies(name)", "status.eq(pending)")
			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(Equal([]row{{id: 4}}))
		})

		It("should drop rows without a match on an inner join", func() {
			rows, err := queryEmbed("id,companies!inner(name)", "")
			Expect(err).ToNot(HaveOccurred())
			ids := make([]int, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.id)
			}
			Expect(ids).To(Equal([]int{1, 2, 3, 5}))
		})

		It("should join through an explicit constraint", func() {
			rows, err := queryEmbed("id,c:companies{id=company_id}(name)", "name.eq(Bob)")
			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(Equal([]row{{id: 2, company: sql.NullString{String: "Acme", Valid: true}}}))
		})
	})
})

func createSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE companies (
			id INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL
		)`,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL,
			email VARCHAR,
			age INTEGER,
			status VARCHAR,
			company_id INTEGER
		)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		Expect(err).ToNot(HaveOccurred())
	}
}

func insertTestData(db *sql.DB) {
	stmts := []string{
		`INSERT INTO companies VALUES (1, 'Acme'), (2, 'Globex')`,
		`INSERT INTO users VALUES
			(1, 'Alice', 'alice@example.com', 30, 'active', 1),
			(2, 'Bob', 'bob@example.com', 25, 'inactive', 1),
			(3, 'Carol', 'carol@test.org', 35, 'active', 2),
			(4, 'Dave', NULL, 17, 'pending', NULL),
			(5, 'O''Brien', 'obrien@example.com', 42, 'active', 2)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		Expect(err).ToNot(HaveOccurred())
	}
}
