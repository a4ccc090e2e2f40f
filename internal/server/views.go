package server

import (
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
)

type queryView struct {
	PageSize    int    `json:"page_size"`
	CurrentPage int    `json:"current_page"`
	SortBy      string `json:"sort_by"`
	Search      string `json:"search"`
}

type summaryView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	DisplayDate string `json:"display_date"`
}

type dashboardView struct {
	Username     string         `json:"username"`
	Query        queryView      `json:"query"`
	PageSizes    []int          `json:"page_sizes"`
	MaxPages     int            `json:"max_pages"`
	Loading      bool           `json:"loading"`
	Moments      []summaryView  `json:"moments"`
	TotalMoments *int64         `json:"total_moments"`
	Status       *statusPayload `json:"status,omitempty"`
	TotalStatus  *statusPayload `json:"total_status,omitempty"`
}

type feelingView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

type momentView struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Date                 string         `json:"date"`
	DisplayDate          string         `json:"display_date"`
	Description          string         `json:"description"`
	DescriptionCharsLeft int            `json:"description_chars_left"`
	Feelings             []feelingView  `json:"feelings"`
	HasImage             bool           `json:"has_image"`
	ImageSource          string         `json:"image_src"`
	ImageCaption         string         `json:"image_caption"`
	Status               *statusPayload `json:"status,omitempty"`
}

func newDashboardView(username string, snapshot listsync.Snapshot) dashboardView {
	view := dashboardView{
		Username: username,
		Query: queryView{
			PageSize:    snapshot.Query.PageSize,
			CurrentPage: snapshot.Query.CurrentPage,
			SortBy:      string(snapshot.Query.SortBy),
			Search:      snapshot.Query.SearchText,
		},
		PageSizes:    append([]int{}, moments.AllowedPageSizes...),
		MaxPages:     snapshot.MaxPages,
		Loading:      snapshot.Loading,
		Moments:      make([]summaryView, 0, len(snapshot.Moments)),
		TotalMoments: snapshot.TotalMoments,
	}
	for _, summary := range snapshot.Moments {
		view.Moments = append(view.Moments, summaryView{
			ID:          summary.ID.String(),
			Title:       summary.Title,
			Date:        summary.Date,
			DisplayDate: moments.DisplayDate(summary.Date),
		})
	}
	if snapshot.MomentsError != "" {
		status := persistentError(snapshot.MomentsError)
		view.Status = &status
	}
	if snapshot.TotalError != "" {
		status := persistentError(snapshot.TotalError)
		view.TotalStatus = &status
	}
	return view
}

// newMomentView renders a moment for the detail page. A decode failure leaves
// the image source empty and is returned to the caller.
func newMomentView(moment moments.Moment) (momentView, error) {
	view := momentView{
		ID:                   moment.ID.String(),
		Title:                moment.Title,
		Date:                 moment.Date,
		DisplayDate:          moments.DisplayDate(moment.Date),
		Description:          moment.Description,
		DescriptionCharsLeft: moments.DescriptionCharsLeft(moment.Description),
		Feelings:             make([]feelingView, 0, len(moment.Feelings)),
		HasImage:             moment.HasImage(),
		ImageCaption:         moment.ImageCaption,
	}
	for _, feeling := range moments.NormalizeFeelings(moment.Feelings) {
		view.Feelings = append(view.Feelings, feelingView{
			Name:  string(feeling),
			Label: feeling.Label(),
			Emoji: feeling.Emoji(),
		})
	}
	source, err := moments.DecodeHexImage(moment.ImageData, moment.ImageFilename)
	if err != nil {
		return view, err
	}
	view.ImageSource = source.String()
	return view, nil
}
