package mysql

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestStripDefiner(t *testing.T) {
	tests := []struct {
		name     string
		ddl      string
		expected string
	}{
		{
			name:     "quoted account",
			ddl:      `CREATE DEFINER="root"@"%" PROCEDURE "p1"() BEGIN SELECT 1; END`,
			expected: `CREATE PROCEDURE "p1"() BEGIN SELECT 1; END`,
		},
		{
			name:     "backquoted account",
			ddl:      "CREATE DEFINER=`app`@`localhost` FUNCTION \"f1\"() RETURNS int RETURN 1",
			expected: `CREATE FUNCTION "f1"() RETURNS int RETURN 1`,
		},
		{
			name:     "account with spaces",
			ddl:      `CREATE DEFINER="app user"@"10.0.0.%" EVENT "e1" ON SCHEDULE EVERY 1 DAY DO DELETE FROM t`,
			expected: `CREATE EVENT "e1" ON SCHEDULE EVERY 1 DAY DO DELETE FROM t`,
		},
		{
			name:     "current user",
			ddl:      `CREATE DEFINER = CURRENT_USER() PROCEDURE "p1"() SELECT 1`,
			expected: `CREATE PROCEDURE "p1"() SELECT 1`,
		},
		{
			name:     "no definer",
			ddl:      `CREATE PROCEDURE "p1"() SELECT 1`,
			expected: `CREATE PROCEDURE "p1"() SELECT 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(StripDefiner(tt.ddl), qt.Equals, tt.expected)
		})
	}
}

func TestAutoIncrementOption(t *testing.T) {
	c := qt.New(t)

	ddl := "CREATE TABLE \"emp\" (\n  \"id\" int NOT NULL AUTO_INCREMENT\n) ENGINE=InnoDB AUTO_INCREMENT=42 DEFAULT CHARSET=utf8mb4"
	c.Assert(autoIncrementOption.ReplaceAllString(ddl, ""), qt.Equals,
		"CREATE TABLE \"emp\" (\n  \"id\" int NOT NULL AUTO_INCREMENT\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
}

func TestSynthesizedDDL(t *testing.T) {
	c := qt.New(t)

	c.Assert(viewDDL("active_emp", " select `e`.`id` AS `id` from `emp` `e` "), qt.Equals,
		"CREATE OR REPLACE VIEW \"active_emp\" AS select `e`.`id` AS `id` from `emp` `e`")

	c.Assert(triggerDDL(trigger{
		name:      "emp_bi",
		timing:    "BEFORE",
		event:     "INSERT",
		table:     "emp",
		statement: "SET NEW.created_at = NOW()",
	}), qt.Equals, `CREATE TRIGGER "emp_bi" BEFORE INSERT ON "emp" FOR EACH ROW SET NEW.created_at = NOW()`)

	c.Assert(quote(`odd"name`), qt.Equals, `"odd""name"`)
}
