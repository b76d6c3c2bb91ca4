// Package mongostore is the document-store collaborator backed by MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collMemberships   = "memberships"
	collProjects      = "projects"
	collTasks         = "tasks"
	collComments      = "comments"
	collNotifications = "notifications"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Info().Str("module", "store.mongo").Str("database", database).Msg("connected")
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Migrate creates the indexes the queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collMemberships: {{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "organizationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		collTasks: {
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "projectId", Value: 1}}},
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "assigneeId", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		collNotifications: {{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "organizationId", Value: 1}, {Key: "read", Value: 1}, {Key: "createdAt", Value: -1}},
		}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) AddMembership(ctx context.Context, m domain.Membership) error {
	if m.Status == "" {
		m.Status = domain.MembershipActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"userId": m.UserID, "organizationId": m.OrganizationID}
	update := bson.M{
		"$set":         bson.M{"role": m.Role, "status": m.Status},
		"$setOnInsert": bson.M{"createdAt": m.CreatedAt},
	}
	_, err := s.db.Collection(collMemberships).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (s *Store) FindActiveMembership(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (domain.Membership, error) {
	filter := bson.M{"userId": userID, "status": domain.MembershipActive}
	if orgID != "" {
		filter["organizationId"] = orgID
	}
	var m domain.Membership
	err := s.db.Collection(collMemberships).
		FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})).
		Decode(&m)
	return m, notFound(err)
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if _, err := s.db.Collection(collProjects).InsertOne(ctx, p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *Store) ProjectOrganization(ctx context.Context, projectID domain.ProjectID) (domain.OrganizationID, error) {
	var p domain.Project
	err := s.db.Collection(collProjects).
		FindOne(ctx, bson.M{"_id": projectID}, options.FindOne().SetProjection(bson.M{"organizationId": 1})).
		Decode(&p)
	return p.OrganizationID, notFound(err)
}

func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if _, err := s.db.Collection(collTasks).InsertOne(ctx, t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) (domain.Task, error) {
	var t domain.Task
	err := s.db.Collection(collTasks).FindOne(ctx, bson.M{"_id": id, "organizationId": orgID}).Decode(&t)
	return t, notFound(err)
}

func (s *Store) UpdateTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID, patch domain.TaskPatch, at time.Time) (domain.Task, error) {
	var t domain.Task
	err := s.db.Collection(collTasks).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "organizationId": orgID},
		bson.M{"$set": patchSet(patch, at)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	return t, notFound(err)
}

// patchSet maps the non-nil patch fields onto their document keys.
func patchSet(patch domain.TaskPatch, at time.Time) bson.M {
	set := bson.M{"updatedAt": at.UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.AssigneeID != nil {
		set["assigneeId"] = *patch.AssigneeID
	}
	return set
}

func (s *Store) DeleteTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) error {
	res, err := s.db.Collection(collTasks).DeleteOne(ctx, bson.M{"_id": id, "organizationId": orgID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, orgID domain.OrganizationID, projectID domain.ProjectID) ([]domain.Task, error) {
	filter := bson.M{"organizationId": orgID}
	if projectID != "" {
		filter["projectId"] = projectID
	}
	return s.findTasks(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *Store) ListTasksByAssignee(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(int64(limit))
	return s.findTasks(ctx, bson.M{"organizationId": orgID, "assigneeId": userID}, opts)
}

func (s *Store) findTasks(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Task, error) {
	cur, err := s.db.Collection(collTasks).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []domain.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountTasksByStatus(ctx context.Context, assigneeID domain.UserID, orgID domain.OrganizationID) (map[domain.TaskStatus]int, error) {
	cur, err := s.db.Collection(collTasks).Aggregate(ctx, statusPipeline(assigneeID, orgID))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status domain.TaskStatus `bson:"_id"`
		Count  int               `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[domain.TaskStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func statusPipeline(assigneeID domain.UserID, orgID domain.OrganizationID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"organizationId": orgID, "assigneeId": assigneeID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
}

func (s *Store) AddComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	if _, err := s.db.Collection(collComments).InsertOne(ctx, c); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if _, err := s.db.Collection(collNotifications).InsertOne(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	res, err := s.db.Collection(collNotifications).UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListUnread(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(collNotifications).Find(ctx,
		bson.M{"userId": userID, "organizationId": orgID, "read": false}, opts)
	if err != nil {
		return nil, err
	}
	out := []domain.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}
