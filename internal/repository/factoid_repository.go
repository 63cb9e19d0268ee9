package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/model"
	"github.com/ae97/panel/internal/validate"
)

// DefaultGame is the slug GetDatabase lists when none is given.
const DefaultGame = "global"

// FactoidRepo reads and writes the factoids and games tables.
//
// Input problems come back as apperr.ValidationFailed.  Database failures
// are logged and turned into the operation's failure value (false, nil or
// an empty collection) and never reach the caller.
type FactoidRepo struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

func NewFactoidRepo(db *sqlx.DB, log *zap.SugaredLogger) *FactoidRepo {
	return &FactoidRepo{db: db, log: log}
}

func (r *FactoidRepo) fail(op string, err error) {
	r.log.Errorw("factoid query failed", "op", op, "err", err)
}

// CreateFactoid adds a factoid to the game with the given slug.  An unknown
// slug inserts nothing and reports false.
func (r *FactoidRepo) CreateFactoid(ctx context.Context, slug, name, content string) (bool, error) {
	if err := validate.All(
		validate.Required("game", slug, "game is required"),
		validate.Required("name", name, "name is required"),
		validate.Required("content", content, "content is required"),
	); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO factoids (name, content, game) SELECT ?, ?, id FROM games WHERE idname = ?`),
		name, content, slug)
	if err != nil {
		r.fail("createFactoid", err)
		return false, nil
	}
	return affected(res) > 0, nil
}

// EditFactoid replaces the content of factoid id.  It reports whether a row
// with that id exists.
func (r *FactoidRepo) EditFactoid(ctx context.Context, id int64, content string) (bool, error) {
	if err := validate.All(
		validate.Positive("id", id, "id must be a positive number"),
		validate.Required("content", content, "content is required"),
	); err != nil {
		return false, err
	}
	return r.exec(ctx, "editFactoid", `UPDATE factoids SET content = ? WHERE id = ?`, content, id)
}

func (r *FactoidRepo) RenameFactoid(ctx context.Context, id int64, name string) (bool, error) {
	if err := validate.All(
		validate.Positive("id", id, "id must be a positive number"),
		validate.Required("name", name, "name is required"),
	); err != nil {
		return false, err
	}
	return r.exec(ctx, "renameFactoid", `UPDATE factoids SET name = ? WHERE id = ?`, name, id)
}

func (r *FactoidRepo) DeleteFactoid(ctx context.Context, id int64) (bool, error) {
	if err := validate.All(validate.Positive("id", id, "id must be a positive number")); err != nil {
		return false, err
	}
	return r.exec(ctx, "deleteFactoid", `DELETE FROM factoids WHERE id = ?`, id)
}

func (r *FactoidRepo) exec(ctx context.Context, op, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		r.fail(op, err)
		return false, nil
	}
	return affected(res) > 0, nil
}

// GetFactoid returns factoid id with Game set to its game's display name, or
// nil when there is no such factoid.
func (r *FactoidRepo) GetFactoid(ctx context.Context, id int64) (*model.Factoid, error) {
	if err := validate.All(validate.Positive("id", id, "id must be a positive number")); err != nil {
		return nil, err
	}
	var rows []model.Factoid
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT factoids.id, factoids.name, factoids.content, games.displayname AS game
		 FROM factoids INNER JOIN games ON factoids.game = games.id
		 WHERE factoids.id = ?`), id)
	if err != nil {
		r.fail("getFactoid", err)
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetDatabase lists the factoids of the game with the given slug alongside
// every known game.  GameRequest is nil when the slug matches no game.
func (r *FactoidRepo) GetDatabase(ctx context.Context, slug string) model.Database {
	if slug == "" {
		slug = DefaultGame
	}
	var games []model.Game
	if err := r.db.SelectContext(ctx, &games, `SELECT idname, displayname FROM games ORDER BY id`); err != nil {
		r.fail("getDatabase", err)
		return model.Database{}
	}
	var factoids []model.Factoid
	err := r.db.SelectContext(ctx, &factoids, r.db.Rebind(
		`SELECT factoids.id, factoids.name, factoids.content, games.displayname AS game
		 FROM factoids INNER JOIN games ON factoids.game = games.id
		 WHERE games.idname = ? ORDER BY factoids.id`), slug)
	if err != nil {
		r.fail("getDatabase", err)
		return model.Database{}
	}

	out := model.Database{Games: make([]model.Game, 0, len(games)), Factoids: make([]model.Factoid, 0, len(factoids))}
	for _, g := range games {
		out.Games = append(out.Games, g)
		if g.IDName == slug && out.GameRequest == nil {
			req := g
			out.GameRequest = &req
		}
	}
	for _, f := range factoids {
		f.Game = slug
		out.Factoids = append(out.Factoids, f)
	}
	return out
}

// CreateDatabase adds a game.  displayName defaults to idName.
func (r *FactoidRepo) CreateDatabase(ctx context.Context, idName, displayName string) (bool, error) {
	if err := validate.All(validate.Required("idname", idName, "idname is required")); err != nil {
		return false, err
	}
	if displayName == "" {
		displayName = idName
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO games (idname, displayname) VALUES (?, ?)`), idName, displayName)
	if err != nil {
		r.fail("createDatabase", err)
		return false, nil
	}
	return true, nil
}

// GetGame returns the game owning factoid id, or every game when id is 0.
func (r *FactoidRepo) GetGame(ctx context.Context, id int64) ([]model.GameName, error) {
	out := []model.GameName{}
	if id == 0 {
		if err := r.db.SelectContext(ctx, &out, `SELECT idname AS id, displayname AS name FROM games ORDER BY games.id`); err != nil {
			r.fail("getGame", err)
			return []model.GameName{}, nil
		}
		return out, nil
	}
	if err := validate.All(validate.Positive("id", id, "id must be a positive number")); err != nil {
		return []model.GameName{}, err
	}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT games.idname AS id, games.displayname AS name
		 FROM games INNER JOIN factoids ON factoids.game = games.id
		 WHERE factoids.id = ?`), id)
	if err != nil {
		r.fail("getGame", err)
		return []model.GameName{}, nil
	}
	return out, nil
}

func (r *FactoidRepo) GetDatabaseNames(ctx context.Context) []model.Game {
	out := []model.Game{}
	if err := r.db.SelectContext(ctx, &out, `SELECT idname, displayname FROM games ORDER BY id`); err != nil {
		r.fail("getDatabaseNames", err)
		return []model.Game{}
	}
	return out
}
