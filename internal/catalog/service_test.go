package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) CreateDataset(ctx context.Context, dataset *Dataset, data []byte) error {
	args := m.Called(ctx, dataset, data)
	return args.Error(0)
}

func (m *MockRepository) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Dataset), args.Error(1)
}

func (m *MockRepository) GetDatasetData(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRepository) ListDatasets(ctx context.Context, filters *ListFilters) ([]*Dataset, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*Dataset), args.Int(1), args.Error(2)
}

func (m *MockRepository) DeleteDataset(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) QueryIntersects(ctx context.Context, bbox BBox, category string, limit int) ([]*Dataset, error) {
	args := m.Called(ctx, bbox, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Dataset), args.Error(1)
}

func (m *MockRepository) IncrementQueryCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) IncrementMapUsage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountDatasets(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context) (*IndexStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IndexStats), args.Error(1)
}

func newTestService(repo *MockRepository) *Service {
	return NewService(repo, nil, zap.NewNop())
}

func validCreateRequest() *CreateDatasetRequest {
	return &CreateDatasetRequest{
		Title:       "City Parks",
		Description: "Boundaries of public parks in the city",
		Category:    "environment",
		Tags:        []string{"parks", "recreation"},
		Data: json.RawMessage(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.4, 37.8]}, "properties": {"name": "golden gate"}},
				{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.2, 37.9]}, "properties": {"name": "tilden"}}
			]
		}`),
	}
}

func TestCreateDataset(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("CreateDataset", mock.Anything, mock.AnythingOfType("*catalog.Dataset"), mock.Anything).Return(nil)

	dataset, err := svc.CreateDataset(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Contains(t, dataset.ID, "ds_")
	assert.Equal(t, "City Parks", dataset.Title)
	assert.Equal(t, "environment", dataset.Category)
	assert.Equal(t, "parks,recreation", dataset.Tags)
	assert.Equal(t, 2, dataset.FeatureCount)
	assert.Equal(t, "Point", dataset.GeometryTypes)
	assert.Equal(t, -122.4, dataset.BBoxWest)
	assert.Equal(t, 37.8, dataset.BBoxSouth)
	assert.Equal(t, -122.2, dataset.BBoxEast)
	assert.Equal(t, 37.9, dataset.BBoxNorth)
	assert.Equal(t, 1.0, dataset.Completeness)
	assert.True(t, dataset.Public)
	assert.Contains(t, dataset.SchemaDef, `"name"`)
	repo.AssertExpectations(t)
}

func TestCreateDatasetUnknownCategoryFallsBack(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	repo.On("CreateDataset", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := validCreateRequest()
	req.Category = "space-lasers"

	dataset, err := svc.CreateDataset(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "other", dataset.Category)
}

func TestCreateDatasetValidation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	tests := []struct {
		name   string
		mutate func(*CreateDatasetRequest)
	}{
		{"short title", func(r *CreateDatasetRequest) { r.Title = "ab" }},
		{"short description", func(r *CreateDatasetRequest) { r.Description = "too short" }},
		{"not geojson", func(r *CreateDatasetRequest) { r.Data = json.RawMessage(`{"type": "Point", "coordinates": [1,2]}`) }},
		{"not json", func(r *CreateDatasetRequest) { r.Data = json.RawMessage(`POINT(1 2)`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.CreateDataset(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
	repo.AssertNotCalled(t, "CreateDataset")
}

func TestCreateDatasetEmptyCollection(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	req := validCreateRequest()
	req.Data = json.RawMessage(`{"type": "FeatureCollection", "features": []}`)

	_, err := svc.CreateDataset(context.Background(), req)
	require.Error(t, err)
	repo.AssertNotCalled(t, "CreateDataset")
}

func TestGetDatasetData(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	body := []byte(`{"type":"FeatureCollection","features":[]}`)
	repo.On("GetDatasetData", mock.Anything, "ds_1").Return(body, nil)
	repo.On("IncrementQueryCount", mock.Anything, "ds_1").Return(nil)

	data, err := svc.GetDatasetData(context.Background(), "ds_1")
	require.NoError(t, err)
	assert.Equal(t, body, data)
	repo.AssertCalled(t, "IncrementQueryCount", mock.Anything, "ds_1")
}

func TestGetDatasetDataNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("GetDatasetData", mock.Anything, "missing").Return(nil, ErrNotFound)

	_, err := svc.GetDatasetData(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "IncrementQueryCount")
}

func TestPreviewDatasetClampsSize(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	fc := `{"type":"FeatureCollection","features":[`
	for i := 0; i < 5; i++ {
		if i > 0 {
			fc += ","
		}
		fc += `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}`
	}
	fc += `]}`
	repo.On("GetDatasetData", mock.Anything, "ds_1").Return([]byte(fc), nil)

	preview, err := svc.PreviewDataset(context.Background(), "ds_1", 3)
	require.NoError(t, err)
	assert.Len(t, preview.Features, 3)

	preview, err = svc.PreviewDataset(context.Background(), "ds_1", 0)
	require.NoError(t, err)
	assert.Len(t, preview.Features, 5, "default preview size covers the whole small dataset")
}

func TestListDatasetsClampsFilters(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("ListDatasets", mock.Anything, &ListFilters{Category: "other", Limit: 100, Offset: 0}).
		Return([]*Dataset{}, 0, nil)

	_, total, err := svc.ListDatasets(context.Background(), &ListFilters{
		Category: "Bogus",
		Limit:    5000,
		Offset:   -3,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	repo.AssertExpectations(t)
}

func TestIntersectsRejectsInvertedBBox(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.Intersects(context.Background(), &IntersectsQuery{West: 10, South: 0, East: -10, North: 5})
	assert.ErrorIs(t, err, ErrInvalidBBox)
	repo.AssertNotCalled(t, "QueryIntersects")
}

func TestIntersectsPreservesRepositoryOrder(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	datasets := []*Dataset{
		{ID: "ds_high", ReputationScore: 9.5, Tags: "a,b"},
		{ID: "ds_low", ReputationScore: 1.0},
	}
	repo.On("QueryIntersects", mock.Anything,
		BBox{West: -10, South: -10, East: 10, North: 10}, "", defaultQueryLimit).
		Return(datasets, nil)

	resp, err := svc.Intersects(context.Background(), &IntersectsQuery{West: -10, South: -10, East: 10, North: 10})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "intersects", resp.QueryType)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "ds_high", resp.Results[0].ID)
	assert.Equal(t, []string{"a", "b"}, resp.Results[0].Tags)
	assert.Nil(t, resp.Results[0].DistanceKM)
}

func TestIntersectsClampsLimit(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("QueryIntersects", mock.Anything, mock.Anything, mock.Anything, maxQueryLimit).
		Return([]*Dataset{}, nil)

	_, err := svc.Intersects(context.Background(), &IntersectsQuery{East: 1, North: 1, Limit: 9999})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestNearbyRanksByDistance(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	// One dataset centered on the query point, one about 111 km north.
	datasets := []*Dataset{
		{ID: "ds_far", BBoxWest: -1, BBoxSouth: 0, BBoxEast: 1, BBoxNorth: 2},
		{ID: "ds_near", BBoxWest: -1, BBoxSouth: -1, BBoxEast: 1, BBoxNorth: 1},
	}
	repo.On("QueryIntersects", mock.Anything, mock.Anything, "", defaultQueryLimit).
		Return(datasets, nil)

	resp, err := svc.Nearby(context.Background(), &NearbyQuery{Lat: 0, Lng: 0, RadiusKM: 200})
	require.NoError(t, err)

	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "ds_near", resp.Results[0].ID)
	assert.Equal(t, "ds_far", resp.Results[1].ID)

	require.NotNil(t, resp.Results[0].DistanceKM)
	assert.Equal(t, 0.0, *resp.Results[0].DistanceKM)
	require.NotNil(t, resp.Results[1].DistanceKM)
	assert.InDelta(t, 111.2, *resp.Results[1].DistanceKM, 1.0)
}

func TestNearbyDefaultRadius(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("QueryIntersects", mock.Anything, mock.Anything, "", defaultQueryLimit).
		Return([]*Dataset{}, nil)

	resp, err := svc.Nearby(context.Background(), &NearbyQuery{Lat: 10, Lng: 20})
	require.NoError(t, err)
	assert.Equal(t, 50.0, resp.QueryParams["radius_km"])
}

func TestNearbyTiesBrokenByReputation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	datasets := []*Dataset{
		{ID: "ds_b", ReputationScore: 1.0},
		{ID: "ds_a", ReputationScore: 8.0},
	}
	repo.On("QueryIntersects", mock.Anything, mock.Anything, "", defaultQueryLimit).
		Return(datasets, nil)

	resp, err := svc.Nearby(context.Background(), &NearbyQuery{Lat: 0, Lng: 0, RadiusKM: 10})
	require.NoError(t, err)
	assert.Equal(t, "ds_a", resp.Results[0].ID)
	assert.Equal(t, "ds_b", resp.Results[1].ID)
}

func TestContainsUsesDegenerateBox(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("QueryIntersects", mock.Anything,
		BBox{West: -122.4, South: 37.8, East: -122.4, North: 37.8}, "boundaries", defaultQueryLimit).
		Return([]*Dataset{{ID: "ds_sf"}}, nil)

	resp, err := svc.Contains(context.Background(), &PointQuery{Lat: 37.8, Lng: -122.4, Category: "boundaries"})
	require.NoError(t, err)

	assert.Equal(t, "contains", resp.QueryType)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "ds_sf", resp.Results[0].ID)
	assert.Nil(t, resp.Results[0].DistanceKM)
	repo.AssertExpectations(t)
}

func TestDeleteDataset(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("DeleteDataset", mock.Anything, "ds_1").Return(nil)
	require.NoError(t, svc.DeleteDataset(context.Background(), "ds_1"))

	repo.On("DeleteDataset", mock.Anything, "missing").Return(ErrNotFound)
	assert.ErrorIs(t, svc.DeleteDataset(context.Background(), "missing"), ErrNotFound)
}

func TestStats(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("Stats", mock.Anything).Return(&IndexStats{
		TotalDatasets:    12,
		SpatiallyIndexed: 12,
		Categories:       4,
	}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalDatasets)
	assert.Equal(t, 4, stats.Categories)
}
