package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names mirror the logical document collections.
const (
	profilesCollection       = "profiles"
	testResultsCollection    = "testResults"
	userTestStatusCollection = "userTestStatus"
)

// EnsureMongoIndexes creates the unique indexes the document store relies on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(profilesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "admissionNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("admission_number_unique")},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetName("phone_unique")},
	})
	if err != nil {
		return fmt.Errorf("profile indexes: %w", err)
	}

	_, err = db.Collection(testResultsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "completedAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("one_completed_result").
				SetPartialFilterExpression(bson.M{"status": string(model.ResultStatusCompleted)}),
		},
	})
	if err != nil {
		return fmt.Errorf("result indexes: %w", err)
	}
	return nil
}

// ─── Profiles ───────────────────────────────────────────────────────

type profileDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Email           string    `bson:"email"`
	Phone           string    `bson:"phone"`
	AdmissionNumber string    `bson:"admissionNumber"`
	Branch          string    `bson:"branch"`
	CreatedAt       time.Time `bson:"createdAt"`
}

// MongoProfileRepository stores candidate profiles in MongoDB.
type MongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates a new MongoProfileRepository.
func NewMongoProfileRepository(db *mongo.Database) *MongoProfileRepository {
	return &MongoProfileRepository{collection: db.Collection(profilesCollection)}
}

func (r *MongoProfileRepository) Create(ctx context.Context, p *model.CandidateProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, profileDoc{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		AdmissionNumber: p.AdmissionNumber,
		Branch:          p.Branch,
		CreatedAt:       p.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			switch {
			case strings.Contains(err.Error(), "admission_number_unique"):
				return ErrDuplicateAdmissionNumber
			case strings.Contains(err.Error(), "phone_unique"):
				return ErrDuplicatePhone
			}
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *MongoProfileRepository) GetByID(ctx context.Context, id string) (*model.CandidateProfile, error) {
	var d profileDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.CandidateProfile{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		AdmissionNumber: d.AdmissionNumber,
		Branch:          d.Branch,
		CreatedAt:       d.CreatedAt,
	}, nil
}

func (r *MongoProfileRepository) ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error) {
	return r.exists(ctx, bson.M{"admissionNumber": admissionNumber})
}

func (r *MongoProfileRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, bson.M{"phone": phone})
}

func (r *MongoProfileRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ─── Test results ───────────────────────────────────────────────────

type testResultDoc struct {
	ID              string         `bson:"_id"`
	UserID          string         `bson:"userId"`
	UserName        string         `bson:"userName"`
	UserEmail       string         `bson:"userEmail"`
	AdmissionNumber string         `bson:"admissionNumber"`
	Branch          string         `bson:"branch"`
	Score           int            `bson:"score"`
	TotalQuestions  int            `bson:"totalQuestions"`
	Percentage      int            `bson:"percentage"`
	TimeSpent       int            `bson:"timeSpent"`
	Answers         []model.Answer `bson:"answers"`
	CompletedAt     time.Time      `bson:"completedAt"`
	Status          string         `bson:"status"`
}

func (d testResultDoc) toModel() model.TestResult {
	return model.TestResult{
		ID:              d.ID,
		CandidateID:     d.UserID,
		CandidateName:   d.UserName,
		CandidateEmail:  d.UserEmail,
		AdmissionNumber: d.AdmissionNumber,
		Branch:          d.Branch,
		Score:           d.Score,
		TotalQuestions:  d.TotalQuestions,
		Percentage:      d.Percentage,
		TimeSpent:       d.TimeSpent,
		Answers:         d.Answers,
		CompletedAt:     d.CompletedAt,
		Status:          model.ResultStatus(d.Status),
	}
}

// MongoTestResultRepository stores test results in MongoDB.
type MongoTestResultRepository struct {
	collection *mongo.Collection
}

// NewMongoTestResultRepository creates a new MongoTestResultRepository.
func NewMongoTestResultRepository(db *mongo.Database) *MongoTestResultRepository {
	return &MongoTestResultRepository{collection: db.Collection(testResultsCollection)}
}

func (r *MongoTestResultRepository) Create(ctx context.Context, res *model.TestResult) error {
	_, err := r.collection.InsertOne(ctx, testResultDoc{
		ID:              res.ID,
		UserID:          res.CandidateID,
		UserName:        res.CandidateName,
		UserEmail:       res.CandidateEmail,
		AdmissionNumber: res.AdmissionNumber,
		Branch:          res.Branch,
		Score:           res.Score,
		TotalQuestions:  res.TotalQuestions,
		Percentage:      res.Percentage,
		TimeSpent:       res.TimeSpent,
		Answers:         res.Answers,
		CompletedAt:     res.CompletedAt,
		Status:          string(res.Status),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrResultExists
		}
		return fmt.Errorf("failed to insert test result: %w", err)
	}
	return nil
}

func (r *MongoTestResultRepository) GetCompletedByCandidate(ctx context.Context, candidateID string) (*model.TestResult, error) {
	var d testResultDoc
	err := r.collection.FindOne(ctx,
		bson.M{"userId": candidateID, "status": string(model.ResultStatusCompleted)},
		options.FindOne().SetSort(bson.D{{Key: "completedAt", Value: -1}}),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res := d.toModel()
	return &res, nil
}

func (r *MongoTestResultRepository) ListByCandidate(ctx context.Context, candidateID string) ([]model.TestResult, error) {
	return r.find(ctx, bson.M{"userId": candidateID})
}

func (r *MongoTestResultRepository) ListAll(ctx context.Context) ([]model.TestResult, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoTestResultRepository) find(ctx context.Context, filter bson.M) ([]model.TestResult, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []testResultDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	results := make([]model.TestResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.toModel())
	}
	return results, nil
}

// ─── User test status ───────────────────────────────────────────────

type testStatusDoc struct {
	CandidateID     string     `bson:"_id"`
	HasSubmitted    bool       `bson:"hasSubmitted"`
	SubmissionDate  *time.Time `bson:"submissionDate,omitempty"`
	TabSwitchCount  int        `bson:"tabSwitchCount"`
	IsTestCancelled bool       `bson:"isTestCancelled"`
	StartedAt       *time.Time `bson:"startedAt,omitempty"`
	LastActivity    time.Time  `bson:"lastActivity"`
}

// MongoTestStatusRepository stores per-candidate test status in MongoDB.
type MongoTestStatusRepository struct {
	collection *mongo.Collection
}

// NewMongoTestStatusRepository creates a new MongoTestStatusRepository.
func NewMongoTestStatusRepository(db *mongo.Database) *MongoTestStatusRepository {
	return &MongoTestStatusRepository{collection: db.Collection(userTestStatusCollection)}
}

func (r *MongoTestStatusRepository) GetOrCreate(ctx context.Context, candidateID string) (*model.UserTestStatus, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var d testStatusDoc
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": candidateID},
		bson.M{"$setOnInsert": bson.M{
			"hasSubmitted":    false,
			"tabSwitchCount":  0,
			"isTestCancelled": false,
			"lastActivity":    now,
		}},
		opts,
	).Decode(&d)
	if err != nil {
		return nil, err
	}
	return &model.UserTestStatus{
		CandidateID:     d.CandidateID,
		HasSubmitted:    d.HasSubmitted,
		SubmissionDate:  d.SubmissionDate,
		TabSwitchCount:  d.TabSwitchCount,
		IsTestCancelled: d.IsTestCancelled,
		StartedAt:       d.StartedAt,
		LastActivity:    d.LastActivity,
	}, nil
}

func (r *MongoTestStatusRepository) MarkStarted(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": candidateID, "startedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"startedAt": at, "lastActivity": at}},
	)
	return err
}

func (r *MongoTestStatusRepository) IncrementTabSwitch(ctx context.Context, candidateID string, limit int, at time.Time) (int, bool, error) {
	var d testStatusDoc
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{
			"_id":             candidateID,
			"isTestCancelled": bson.M{"$ne": true},
			"hasSubmitted":    bson.M{"$ne": true},
			"tabSwitchCount":  bson.M{"$lte": limit},
		},
		bson.M{"$inc": bson.M{"tabSwitchCount": 1}, "$set": bson.M{"lastActivity": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return d.TabSwitchCount, true, nil
}

func (r *MongoTestStatusRepository) MarkCancelled(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": candidateID},
		bson.M{"$set": bson.M{"isTestCancelled": true, "lastActivity": at}},
	)
	return err
}

func (r *MongoTestStatusRepository) MarkSubmitted(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": candidateID},
		bson.M{"$set": bson.M{"hasSubmitted": true, "submissionDate": at, "lastActivity": at}},
	)
	return err
}

func (r *MongoTestStatusRepository) Summary(ctx context.Context) (*model.TestStatusSummary, error) {
	count := func(filter bson.M) (int, error) {
		n, err := r.collection.CountDocuments(ctx, filter)
		return int(n), err
	}

	s := &model.TestStatusSummary{}
	var err error
	if s.Total, err = count(bson.M{}); err != nil {
		return nil, err
	}
	if s.InProgress, err = count(bson.M{
		"startedAt":       bson.M{"$exists": true},
		"hasSubmitted":    false,
		"isTestCancelled": false,
	}); err != nil {
		return nil, err
	}
	if s.Submitted, err = count(bson.M{"hasSubmitted": true}); err != nil {
		return nil, err
	}
	if s.Cancelled, err = count(bson.M{"isTestCancelled": true}); err != nil {
		return nil, err
	}
	return s, nil
}
