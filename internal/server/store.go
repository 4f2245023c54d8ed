package server

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id                     TEXT PRIMARY KEY,
	pin                    TEXT NOT NULL UNIQUE,
	title                  TEXT NOT NULL,
	status                 TEXT NOT NULL,
	current_question_index INTEGER NOT NULL DEFAULT -1,
	create_time            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	game_id       TEXT NOT NULL,
	idx           INTEGER NOT NULL,
	text          TEXT NOT NULL,
	options       TEXT NOT NULL,
	correct_index INTEGER NOT NULL,
	PRIMARY KEY (game_id, idx)
);

CREATE TABLE IF NOT EXISTS players (
	id       TEXT PRIMARY KEY,
	game_id  TEXT NOT NULL,
	nickname TEXT NOT NULL,
	score    INTEGER NOT NULL DEFAULT 0,
	UNIQUE (game_id, nickname)
);

CREATE TABLE IF NOT EXISTS answers (
	player_id      TEXT NOT NULL,
	question_index INTEGER NOT NULL,
	answer_index   INTEGER NOT NULL,
	PRIMARY KEY (player_id, question_index)
);
`

// DB is the server's system of record: games, questions, players and their
// answers. The leaderboard ranking itself lives in redis; scores are written
// here too so a restart can rebuild it.
type DB struct {
	db *sql.DB
}

func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("server: open sqlite at %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("server: init schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// storedQuestion is a question with its answer key. The key never crosses the
// wire; clients only ever see domain.Question.
type storedQuestion struct {
	domain.Question
	CorrectIndex int
}

type player struct {
	ID       string
	GameID   string
	Nickname string
	Score    int
}

// CreateGame allocates a game with a fresh 6-digit PIN, retrying on the rare
// collision with an existing game.
func (d *DB) CreateGame(ctx context.Context, title string) (*domain.Game, error) {
	for attempt := 0; attempt < 10; attempt++ {
		g := domain.Game{
			ID:     uuid.Must(uuid.NewV7()).String(),
			PIN:    fmt.Sprintf("%06d", rand.Intn(1_000_000)),
			Title:  title,
			Status: domain.StatusPrepared,
		}

		_, err := d.db.ExecContext(ctx,
			`INSERT INTO games (id, pin, title, status, create_time) VALUES (?, ?, ?, ?, ?)`,
			g.ID, g.PIN, g.Title, g.Status, time.Now().UTC(),
		)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, errors.Internal(err)
		}
		return &g, nil
	}

	return nil, errors.New(errors.CodeInternal, errors.WithMessagef("could not allocate a unique PIN"))
}

func (d *DB) GameByPIN(ctx context.Context, pin string) (*domain.Game, int, error) {
	return d.game(ctx, `SELECT id, pin, title, status, current_question_index FROM games WHERE pin = ?`, pin)
}

func (d *DB) GameByID(ctx context.Context, id string) (*domain.Game, int, error) {
	return d.game(ctx, `SELECT id, pin, title, status, current_question_index FROM games WHERE id = ?`, id)
}

func (d *DB) game(ctx context.Context, query string, arg any) (*domain.Game, int, error) {
	var (
		g   domain.Game
		idx int
	)
	err := d.db.QueryRowContext(ctx, query, arg).Scan(&g.ID, &g.PIN, &g.Title, &g.Status, &idx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, 0, errors.New(errors.CodeNotFound, errors.WithMessagef("game not found"))
	}
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return &g, idx, nil
}

// ListGames returns every game, newest first.
func (d *DB) ListGames(ctx context.Context) ([]domain.Game, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, pin, title, status FROM games ORDER BY create_time DESC`)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.PIN, &g.Title, &g.Status); err != nil {
			return nil, errors.Internal(err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (d *DB) UpdateStatus(ctx context.Context, gameID string, status domain.GameStatus) error {
	res, err := d.db.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, gameID)
	if err != nil {
		return errors.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("game not found"))
	}
	return nil
}

// AddQuestion appends one question; its index is its position in the game.
func (d *DB) AddQuestion(ctx context.Context, gameID, text string, options []string, correctIndex int) (int, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return 0, errors.Internal(err)
	}

	var idx int
	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE game_id = ?`, gameID).Scan(&idx)
	if err != nil {
		return 0, errors.Internal(err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO questions (game_id, idx, text, options, correct_index) VALUES (?, ?, ?, ?, ?)`,
		gameID, idx, text, string(opts), correctIndex,
	)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return idx, nil
}

func (d *DB) Question(ctx context.Context, gameID string, idx int) (*storedQuestion, error) {
	var (
		q    storedQuestion
		opts string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT idx, text, options, correct_index FROM questions WHERE game_id = ? AND idx = ?`,
		gameID, idx,
	).Scan(&q.Index, &q.Text, &opts, &q.CorrectIndex)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("question %d not found", idx))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return nil, errors.Internal(err)
	}
	return &q, nil
}

func (d *DB) CountQuestions(ctx context.Context, gameID string) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE game_id = ?`, gameID).Scan(&n); err != nil {
		return 0, errors.Internal(err)
	}
	return n, nil
}

// AdvanceQuestion bumps the game's cursor and returns the new index.
func (d *DB) AdvanceQuestion(ctx context.Context, gameID string) (int, error) {
	_, err := d.db.ExecContext(ctx,
		`UPDATE games SET current_question_index = current_question_index + 1 WHERE id = ?`, gameID)
	if err != nil {
		return 0, errors.Internal(err)
	}

	var idx int
	err = d.db.QueryRowContext(ctx,
		`SELECT current_question_index FROM games WHERE id = ?`, gameID).Scan(&idx)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return idx, nil
}

// JoinPlayer registers a nickname in a game. Joining again with the same
// nickname returns the existing player, which is how a reload resumes a run
// with its score intact.
func (d *DB) JoinPlayer(ctx context.Context, gameID, nickname string) (*player, error) {
	p := player{
		ID:       uuid.Must(uuid.NewV7()).String(),
		GameID:   gameID,
		Nickname: nickname,
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO players (id, game_id, nickname) VALUES (?, ?, ?)`,
		p.ID, p.GameID, p.Nickname,
	)
	if isUniqueViolation(err) {
		return d.playerByNickname(ctx, gameID, nickname)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &p, nil
}

func (d *DB) Player(ctx context.Context, id string) (*player, error) {
	var p player
	err := d.db.QueryRowContext(ctx,
		`SELECT id, game_id, nickname, score FROM players WHERE id = ?`, id,
	).Scan(&p.ID, &p.GameID, &p.Nickname, &p.Score)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("player not found"))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &p, nil
}

func (d *DB) playerByNickname(ctx context.Context, gameID, nickname string) (*player, error) {
	var p player
	err := d.db.QueryRowContext(ctx,
		`SELECT id, game_id, nickname, score FROM players WHERE game_id = ? AND nickname = ?`,
		gameID, nickname,
	).Scan(&p.ID, &p.GameID, &p.Nickname, &p.Score)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &p, nil
}

// RecordAnswer stores a player's answer for one question. A second answer for
// the same question hits the primary key and comes back as AlreadyExists, which
// is what makes first-answer-wins hold on the server no matter how many times a
// client retries.
func (d *DB) RecordAnswer(ctx context.Context, playerID string, questionIndex, answerIndex int) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO answers (player_id, question_index, answer_index) VALUES (?, ?, ?)`,
		playerID, questionIndex, answerIndex,
	)
	if isUniqueViolation(err) {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("question %d already answered", questionIndex))
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// AddScore credits points and returns the player's new total.
func (d *DB) AddScore(ctx context.Context, playerID string, points int) (int, error) {
	_, err := d.db.ExecContext(ctx,
		`UPDATE players SET score = score + ? WHERE id = ?`, points, playerID)
	if err != nil {
		return 0, errors.Internal(err)
	}

	var score int
	err = d.db.QueryRowContext(ctx,
		`SELECT score FROM players WHERE id = ?`, playerID).Scan(&score)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return score, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !stderrors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
