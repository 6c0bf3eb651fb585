package builder

import (
	"testing"
	"time"
)

func TestSQLBuilder(t *testing.T) {
	t.Run("Select", func(t *testing.T) {
		b := NewSQLBuilder()
		query, args := b.Select("id", "email").From("users").Where("id = ?", "u1").Build()
		expected := "SELECT id, email FROM users WHERE id = $1"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 1 || args[0] != "u1" {
			t.Errorf("expected args [u1], got %v", args)
		}
	})

	t.Run("Insert", func(t *testing.T) {
		b := NewSQLBuilder()
		query, args := b.Insert("time_cards", "id", "status").Values("c1", "DRAFT").Returning("created_at").Build()
		expected := "INSERT INTO time_cards (id, status) VALUES ($1, $2) RETURNING created_at"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 2 || args[0] != "c1" || args[1] != "DRAFT" {
			t.Errorf("expected args [c1 DRAFT], got %v", args)
		}
	})

	t.Run("Update", func(t *testing.T) {
		b := NewSQLBuilder()
		query, args := b.Update("time_cards").
			Set("status", "APPROVED").
			Set("approved_by", "m1").
			Where("id = ?", "c1").
			Build()
		expected := "UPDATE time_cards SET status = $1, approved_by = $2 WHERE id = $3"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 3 || args[2] != "c1" {
			t.Errorf("expected args [APPROVED m1 c1], got %v", args)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		query, args := NewSQLBuilder().Delete("notifications").
			Where("recipient_user_id = ?", "u1").
			Where("is_read").
			Build()
		expected := "DELETE FROM notifications WHERE recipient_user_id = $1 AND is_read"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 1 {
			t.Errorf("expected one arg, got %v", args)
		}
	})
}

func TestSQLBuilderFilters(t *testing.T) {
	t.Run("WhereIf skips disabled conditions", func(t *testing.T) {
		status := ""
		query, args := NewSQLBuilder().Select("id").From("time_off_requests").
			WhereIf(status != "", "status = ?", status).
			WhereIf(true, "employee_id = ?", "e1").
			Build()
		expected := "SELECT id FROM time_off_requests WHERE employee_id = $1"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 1 || args[0] != "e1" {
			t.Errorf("expected args [e1], got %v", args)
		}
	})

	t.Run("WhereAny groups with OR inside AND", func(t *testing.T) {
		query, args := NewSQLBuilder().Select("id").From("users").
			Where("active = ?", true).
			WhereAny([]string{"first_name ILIKE ?", "email ILIKE ?"}, "%ann%", "%ann%").
			Build()
		expected := "SELECT id FROM users WHERE active = $1 AND (first_name ILIKE $2 OR email ILIKE $3)"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 3 {
			t.Errorf("expected 3 args, got %v", args)
		}
	})

	t.Run("Paging and locking", func(t *testing.T) {
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		query, args := NewSQLBuilder().Select("id").From("time_cards").
			Where("period_end > ?", from).
			OrderBy("period_start DESC", "id").
			Limit(20).
			Offset(40).
			ForUpdate().
			Build()
		expected := "SELECT id FROM time_cards WHERE period_end > $1 ORDER BY period_start DESC, id LIMIT 20 OFFSET 40 FOR UPDATE"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 1 {
			t.Errorf("expected one arg, got %v", args)
		}
	})

	t.Run("Count keeps conditions only", func(t *testing.T) {
		b := NewSQLBuilder().Select("id", "status").From("time_cards").
			Where("status = ?", "SUBMITTED").
			OrderBy("id").
			Limit(5)
		query, args := b.Count().Build()
		expected := "SELECT COUNT(*) FROM time_cards WHERE status = $1"
		if query != expected {
			t.Errorf("expected %s, got %s", expected, query)
		}
		if len(args) != 1 {
			t.Errorf("expected one arg, got %v", args)
		}

		// The original builder is untouched.
		query, _ = b.Build()
		if query != "SELECT id, status FROM time_cards WHERE status = $1 ORDER BY id LIMIT 5" {
			t.Errorf("unexpected query after Count: %s", query)
		}
	})
}

func TestBuildSafe(t *testing.T) {
	if _, _, err := NewSQLBuilder().Select("id").BuildSafe(); err == nil {
		t.Error("expected missing table error")
	}
	if _, _, err := NewSQLBuilder().Insert("users", "id", "email").Values("u1").BuildSafe(); err == nil {
		t.Error("expected column/value mismatch error")
	}
	if _, _, err := NewSQLBuilder().Update("users").Where("id = ?", "u1").BuildSafe(); err == nil {
		t.Error("expected empty SET error")
	}
	if _, _, err := NewSQLBuilder().Select("id").From("users").Where("id = ? OR email = ?", "u1").BuildSafe(); err == nil {
		t.Error("expected placeholder mismatch error")
	}
	query, args, err := NewSQLBuilder().Update("users").Set("active", false).Where("id = ?", "u1").BuildSafe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "UPDATE users SET active = $1 WHERE id = $2" || len(args) != 2 {
		t.Errorf("unexpected result %s %v", query, args)
	}
}
