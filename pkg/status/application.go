package status

import (
	"context"
	"time"

	"github.com/pkg/errors"
	logrus "github.com/sirupsen/logrus"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qraiop/chaos-go/pkg/clients"
	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/utils/retry"
)

// CheckApplicationStatus checks whether the application pods with matching label
// are in running state and all of their containers are ready
func CheckApplicationStatus(ctx context.Context, appNs, appLabel string, timeout, delay int, clients clients.ClientSets) error {

	switch appLabel {
	case "":
		// Checking whether applications are healthy
		log.Info("[Status]: No appLabels provided, skipping the application status checks")
	default:
		// Checking whether application pods are in running & ready state
		log.Info("[Status]: Checking whether application pods are in running state")
		if err := CheckPodStatus(ctx, appNs, appLabel, timeout, delay, clients); err != nil {
			return err
		}
	}
	return nil
}

// CheckPodStatus checks the status of the application pod
func CheckPodStatus(ctx context.Context, appNs, appLabel string, timeout, delay int, clients clients.ClientSets) error {
	return retry.
		Times(uint(timeout / delay)).
		Wait(time.Duration(delay) * time.Second).
		Try(func(attempt uint) error {
			podList, err := clients.KubeClient.CoreV1().Pods(appNs).List(ctx, metav1.ListOptions{LabelSelector: appLabel})
			if err != nil {
				return errors.Errorf("Unable to find the pods with matching labels, err: %v", err)
			} else if len(podList.Items) == 0 {
				return errors.Errorf("Unable to find the pods with matching labels")
			}
			for _, pod := range podList.Items {
				if pod.Status.Phase != v1.PodRunning {
					return errors.Errorf("%v pod is not yet in running state", pod.Name)
				}
				if !isPodReady(&pod) {
					return errors.Errorf("%v pod is not yet in ready state", pod.Name)
				}
				log.InfoWithValues("[Status]: The status of Pods are as follows", logrus.Fields{
					"Pod": pod.Name, "Status": pod.Status.Phase})
			}
			return nil
		})
}

// RunningReadyPodCount returns the number of pods with matching label that are
// in running phase with every ready condition true
func RunningReadyPodCount(ctx context.Context, appNs, appLabel string, clients clients.ClientSets) (int, error) {
	podList, err := clients.KubeClient.CoreV1().Pods(appNs).List(ctx, metav1.ListOptions{LabelSelector: appLabel})
	if err != nil {
		return 0, errors.Wrapf(err, "Unable to list the pods with matching labels, err: %v", err)
	}
	count := 0
	for _, pod := range podList.Items {
		if pod.Status.Phase == v1.PodRunning && isPodReady(&pod) {
			count++
		}
	}
	return count, nil
}

// RunningPodCount returns the number of pods with matching label in running phase
func RunningPodCount(ctx context.Context, appNs, appLabel string, clients clients.ClientSets) (int, []string, error) {
	podList, err := clients.KubeClient.CoreV1().Pods(appNs).List(ctx, metav1.ListOptions{LabelSelector: appLabel})
	if err != nil {
		return 0, nil, errors.Wrapf(err, "Unable to list the pods with matching labels, err: %v", err)
	}
	count := 0
	names := []string{}
	for _, pod := range podList.Items {
		if pod.Status.Phase == v1.PodRunning {
			count++
			names = append(names, pod.Name)
		}
	}
	return count, names, nil
}

// isPodReady reports whether all the ready conditions of the pod are true
func isPodReady(pod *v1.Pod) bool {
	for _, condition := range pod.Status.Conditions {
		if condition.Type == v1.PodReady && condition.Status != v1.ConditionTrue {
			return false
		}
	}
	for _, container := range pod.Status.ContainerStatuses {
		if !container.Ready {
			return false
		}
	}
	return true
}
