package injector

import (
	"context"
	"time"

	logrus "github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qraiop/chaos-go/pkg/cerrors"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/math"
	"github.com/qraiop/chaos-go/pkg/types"
)

// injectPodKill deletes a percentage of the pods matching the target selector
// the first N pods in listing order are killed so the selection is stable,
// the exact names deleted are recorded for sizing the recovery wait condition
func (in *Injector) injectPodKill(ctx context.Context, config types.ExperimentConfig) (*types.FailureRecord, error) {

	selector := config.Target.LabelSelector()
	podList, err := in.Clients.KubeClient.CoreV1().Pods(config.Target.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, cerrors.TargetSelection{Namespace: config.Target.Namespace, Selector: selector, Reason: err.Error()}
	}
	if len(podList.Items) == 0 {
		return nil, cerrors.TargetSelection{Namespace: config.Target.Namespace, Selector: selector, Reason: "no targets matched selector"}
	}

	// at least one pod is always affected when at least one pod matches
	killCount := math.Maximum(1, math.Adjustment(len(podList.Items), config.Target.Percentage))
	log.Infof("[Chaos]: Number of pods targeted: %v", killCount)

	killedPods := make([]string, 0, killCount)
	for _, pod := range podList.Items[:killCount] {
		log.InfoWithValues("[Chaos]: Killing the following pods", logrus.Fields{
			"PodName": pod.Name})
		if err := in.Clients.KubeClient.CoreV1().Pods(config.Target.Namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil {
			return nil, cerrors.Injection{Kind: string(types.PodKill), Target: pod.Name, Reason: err.Error()}
		}
		killedPods = append(killedPods, pod.Name)
	}

	record := newRecord(config)
	record.Timestamp = time.Now()
	record.KilledPods = killedPods
	return record, nil
}
